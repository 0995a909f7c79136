package sqlstore

import "github.com/goliatone/go-puthelp/core"

var (
	_ core.KeyValueStorage = (*Storage)(nil)
	_ core.KeyValueStorage = (*CachedStorage)(nil)
)
