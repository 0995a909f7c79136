package gocommand

import (
	"fmt"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	puthelp "github.com/goliatone/go-puthelp"
)

type registration func(adapter *RegistryAdapter, runnerOpts ...runner.Option) (commanddispatcher.Subscription, error)

func commandEntry[T any](cmd command.Commander[T]) registration {
	return func(adapter *RegistryAdapter, runnerOpts ...runner.Option) (commanddispatcher.Subscription, error) {
		return RegisterAndSubscribe(adapter, cmd, runnerOpts...)
	}
}

func queryEntry[T any, R any](qry command.Querier[T, R]) registration {
	return func(adapter *RegistryAdapter, runnerOpts ...runner.Option) (commanddispatcher.Subscription, error) {
		return RegisterAndSubscribeQuery(adapter, qry, runnerOpts...)
	}
}

// RegisterFacade registers every facade command and query with the registry
// and subscribes them on the global dispatcher. On failure the subscriptions
// made so far are released.
func RegisterFacade(
	adapter *RegistryAdapter,
	facade *puthelp.Facade,
	runnerOpts ...runner.Option,
) ([]commanddispatcher.Subscription, error) {
	if facade == nil {
		return nil, fmt.Errorf("gocommand: facade is required")
	}
	cmds := facade.Commands()
	qrys := facade.Queries()
	entries := []registration{
		commandEntry(cmds.SignIn),
		commandEntry(cmds.SignUp),
		commandEntry(cmds.SignOut),
		commandEntry(cmds.ChangePassword),
		commandEntry(cmds.RestoreSession),
		commandEntry(cmds.CreateContent),
		commandEntry(cmds.UpdateContent),
		commandEntry(cmds.PublishContent),
		commandEntry(cmds.DeleteContent),
		commandEntry(cmds.SaveCategory),
		commandEntry(cmds.DeleteCategory),
		commandEntry(cmds.SaveFieldOfStudy),
		commandEntry(cmds.DeleteFieldOfStudy),
		commandEntry(cmds.UpdateUserRole),
		commandEntry(cmds.UpdateUserStatus),
		commandEntry(cmds.DeleteUser),
		commandEntry(cmds.ModerateContent),
		queryEntry(qrys.CurrentUser),
		queryEntry(qrys.CheckAccess),
		queryEntry(qrys.ListPublishedContent),
		queryEntry(qrys.GetPublishedContent),
		queryEntry(qrys.SearchContent),
		queryEntry(qrys.ListMyContent),
		queryEntry(qrys.ActiveCategories),
		queryEntry(qrys.ActiveFieldsOfStudy),
		queryEntry(qrys.SystemStats),
		queryEntry(qrys.ListUsers),
		queryEntry(qrys.ListAdminContent),
	}

	subscriptions := make([]commanddispatcher.Subscription, 0, len(entries))
	for _, entry := range entries {
		subscription, err := entry(adapter, runnerOpts...)
		if err != nil {
			Unsubscribe(subscriptions)
			return nil, err
		}
		subscriptions = append(subscriptions, subscription)
	}
	return subscriptions, nil
}

func Unsubscribe(subscriptions []commanddispatcher.Subscription) {
	for _, subscription := range subscriptions {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
}
