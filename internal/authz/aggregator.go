package authz

import (
	"context"
	"sort"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/accessd/accessd/internal/authz/cache"
	"github.com/accessd/accessd/internal/db/controller/access"
	"github.com/accessd/accessd/internal/db/controller/authorization"
	"github.com/accessd/accessd/internal/db/controller/permission"
	"github.com/accessd/accessd/internal/db/controller/user"
	"github.com/accessd/accessd/internal/db/controller/userpermission"
	"github.com/accessd/accessd/internal/db/models"
)

var resolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{ //nolint:gochecknoglobals
	Name:    "accessd_authz_resolve_duration_seconds",
	Help:    "Time spent resolving authorization views from the database.",
	Buckets: prometheus.DefBuckets,
}, []string{"kind"})

// Aggregator resolves users into authorization views, consulting the cache first.
type Aggregator struct {
	db    *gorm.DB
	cache *cache.Cache
	group singleflight.Group
}

// NewAggregator returns an aggregator reading db and memoizing into c.
func NewAggregator(db *gorm.DB, c *cache.Cache) *Aggregator {
	return &Aggregator{db: db, cache: c}
}

// flightKey includes the generation so a computation started before an invalidation
// is never shared with a caller that looked the cache up after it.
func flightKey(key cache.Key, t cache.Ticket) string {
	return string(key) + "@" + strconv.FormatUint(t.Generation(), 10)
}

// memoized runs compute at most once per key and generation and stores its result.
// Cache failures are logged and the value is computed from the database.
func (a *Aggregator) memoized(ctx context.Context, key cache.Key, compute func(context.Context) (cache.Value, error)) (cache.Value, error) {
	v, ticket, found, err := a.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", string(key)).Msg("authorization cache unavailable, resolving from database")
	}

	if found {
		return v, nil
	}

	res, err, _ := a.group.Do(flightKey(key, ticket), func() (any, error) {
		return compute(context.WithoutCancel(ctx))
	})
	if err != nil {
		return cache.Value{}, err
	}

	v = res.(cache.Value) //nolint:forcetypeassert

	if _, err = a.cache.Put(ctx, key, v, ticket); err != nil {
		log.Warn().Err(err).Str("key", string(key)).Msg("failed to store authorization view")
	}

	return v, nil
}

// View returns the resolved view of userID. Unknown and non-active users resolve to an empty view.
func (a *Aggregator) View(ctx context.Context, userID uint64) (*cache.View, error) {
	v, err := a.memoized(ctx, cache.UserKey(userID), func(ctx context.Context) (cache.Value, error) {
		view, err := a.resolve(ctx, userID)

		return cache.Value{View: view}, err
	})
	if err != nil {
		return nil, err
	}

	return v.View, nil
}

func emptyView(userID uint64) *cache.View {
	return &cache.View{
		UserID:      userID,
		HeldRoleIDs: []uint64{},
		Roles:       []cache.RoleRef{},
		Permissions: []string{},
		MenuIDs:     []uint64{},
	}
}

func (a *Aggregator) resolve(ctx context.Context, userID uint64) (*cache.View, error) {
	defer prometheus.NewTimer(resolveDuration.WithLabelValues("user")).ObserveDuration()

	db := a.db.WithContext(ctx)
	view := emptyView(userID)

	u, err := user.Find(db, userID)
	if err != nil {
		return nil, err
	}

	if u == nil || u.Status != models.UserStatusActive {
		return view, nil
	}

	view.Active = true

	if view.HeldRoleIDs, err = access.ActiveRoleIDs(db, userID); err != nil {
		return nil, err
	}

	h, err := LoadHierarchy(ctx, a.db)
	if err != nil {
		return nil, err
	}

	view.Roles = h.Inherited(view.HeldRoleIDs)
	view.Highest = Highest(view.Roles)

	roleIDs := make([]uint64, 0, len(view.Roles))
	for _, r := range view.Roles {
		roleIDs = append(roleIDs, r.ID)
	}

	var granted, direct []string

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		granted, err = authorization.PermissionCodes(a.db.WithContext(gctx), roleIDs)

		return err
	})

	g.Go(func() error {
		var err error
		direct, err = userpermission.Codes(a.db.WithContext(gctx), userID)

		return err
	})

	g.Go(func() error {
		var err error
		view.MenuIDs, err = authorization.MenuIDs(a.db.WithContext(gctx), roleIDs)

		return err
	})

	if err = g.Wait(); err != nil {
		return nil, err
	}

	view.Permissions = union(granted, direct)

	return view, nil
}

// union merges code lists into one sorted, deduplicated list.
func union(lists ...[]string) []string {
	seen := map[string]bool{}
	out := []string{}

	for _, l := range lists {
		for _, c := range l {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}

	sort.Strings(out)

	return out
}

// RolePermissions returns the codes granted to roleID itself, without inheritance.
func (a *Aggregator) RolePermissions(ctx context.Context, roleID uint64) ([]string, error) {
	v, err := a.memoized(ctx, cache.RoleKey(roleID), func(ctx context.Context) (cache.Value, error) {
		defer prometheus.NewTimer(resolveDuration.WithLabelValues("role")).ObserveDuration()

		codes, err := authorization.PermissionCodes(a.db.WithContext(ctx), []uint64{roleID})

		return cache.Value{Permissions: codes}, err
	})
	if err != nil {
		return nil, err
	}

	return v.Permissions, nil
}

// ResourceActions returns the sorted actions of every live permission on resource.
func (a *Aggregator) ResourceActions(ctx context.Context, resource string) ([]string, error) {
	codes, err := permission.Codes(a.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	actions := []string{}

	for _, code := range codes {
		if res, action, ok := models.SplitCode(code); ok && res == resource {
			actions = append(actions, action)
		}
	}

	return union(actions), nil
}
