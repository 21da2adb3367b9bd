package emailsender

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/telekom/email-sender/pkg/queries"
)

// Directory lists the inventories that audience aliases expand to.
type Directory interface {
	Users(ctx context.Context) ([]queries.UserRef, error)
	Apps(ctx context.Context) ([]queries.ServiceRef, error)
}

// Resolver turns an AudienceSpec into recipient identifiers. Identifiers are
// owner emails for services and AWS accounts, and org usernames for roles and
// users; both kinds live in the same set.
type Resolver struct {
	dir Directory
	log *zap.SugaredLogger
}

func NewResolver(dir Directory, log *zap.SugaredLogger) *Resolver {
	return &Resolver{dir: dir, log: log}
}

// Expand resolves the aliases of spec. The returned spec is a copy whose
// Users or Services are replaced by the full inventories for all-users and
// all-service-owners respectively; spec itself is left untouched.
func (r *Resolver) Expand(ctx context.Context, spec queries.AudienceSpec) (queries.AudienceSpec, error) {
	resolved := spec
	resolved.Aliases = slices.Clone(spec.Aliases)
	for _, alias := range spec.Aliases {
		switch alias {
		case queries.AliasAllUsers:
			users, err := r.dir.Users(ctx)
			if err != nil {
				return queries.AudienceSpec{}, fmt.Errorf("failed to expand alias %s: %w", alias, err)
			}
			resolved.Users = users
		case queries.AliasAllServiceOwners:
			apps, err := r.dir.Apps(ctx)
			if err != nil {
				return queries.AudienceSpec{}, fmt.Errorf("failed to expand alias %s: %w", alias, err)
			}
			resolved.Services = apps
		default:
			return queries.AudienceSpec{}, &UnknownAliasError{Alias: alias}
		}
	}
	return resolved, nil
}

// CollectTo returns the recipient identifiers of spec after alias expansion.
func (r *Resolver) CollectTo(ctx context.Context, spec queries.AudienceSpec) (sets.Set[string], error) {
	resolved, err := r.Expand(ctx, spec)
	if err != nil {
		return nil, err
	}

	audience := sets.New[string]()
	for _, svc := range resolved.Services {
		for _, owner := range svc.ServiceOwners {
			audience.Insert(owner.Email)
		}
	}
	if len(resolved.Clusters) > 0 {
		r.log.Debugw("Cluster audiences are not supported, skipping", "clusters", len(resolved.Clusters))
	}
	if len(resolved.Namespaces) > 0 {
		r.log.Debugw("Namespace audiences are not supported, skipping", "namespaces", len(resolved.Namespaces))
	}
	for _, account := range resolved.AWSAccounts {
		for _, owner := range account.AccountOwners {
			audience.Insert(owner.Email)
		}
	}
	for _, role := range resolved.Roles {
		for _, user := range role.Users {
			audience.Insert(user.OrgUsername)
		}
	}
	for _, user := range resolved.Users {
		audience.Insert(user.OrgUsername)
	}
	return audience, nil
}
