// Package core contains the client session: credential storage, token claim
// decoding, the single-flight refresh coordinator, access guards and the
// portal domain types. Transport and API packages depend on core; core does
// not depend on them.
package core
