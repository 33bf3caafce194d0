package board

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/dockboard/dockboard/internal/core/domain"
)

type fakeRuntime struct {
	mu          sync.Mutex
	containers  []domain.Container
	policyErr   map[string]error
	policyCalls map[string][]string
	started     []string
}

func newFakeRuntime(containers ...domain.Container) *fakeRuntime {
	return &fakeRuntime{
		containers:  containers,
		policyErr:   map[string]error{},
		policyCalls: map[string][]string{},
	}
}

func (r *fakeRuntime) List(ctx context.Context) ([]domain.Container, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Container(nil), r.containers...), nil
}

func (r *fakeRuntime) Run(ctx context.Context, id string, action domain.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if action == domain.ActionStart {
		r.started = append(r.started, id)
	}
	return nil
}

func (r *fakeRuntime) SetRestartPolicy(ctx context.Context, id, policy string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policyCalls[id] = append(r.policyCalls[id], policy)
	if err := r.policyErr[id]; err != nil {
		return "", err
	}
	for i := range r.containers {
		if r.containers[i].ID == id {
			r.containers[i].RestartPolicy = policy
		}
	}
	return policy, nil
}

func (r *fakeRuntime) Export(ctx context.Context, id string, includeData bool) (*domain.ExportBundle, error) {
	return &domain.ExportBundle{Label: id, Files: map[string][]byte{}}, nil
}

func (r *fakeRuntime) Usage(ctx context.Context) ([]domain.ContainerUsage, error) {
	return nil, nil
}

func (r *fakeRuntime) RecreateFromImage(ctx context.Context, id, imageTag string) (string, error) {
	return id, nil
}

func (r *fakeRuntime) Create(ctx context.Context, name, image string, env, cmd []string) (string, error) {
	return name, nil
}

func (r *fakeRuntime) policies(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.policyCalls[id]...)
}

type fakeGroupStore struct {
	mu        sync.Mutex
	groups    domain.Groups
	failWrite error
	writes    int
}

func (s *fakeGroupStore) Read() (domain.Groups, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.groups == nil {
		return domain.Groups{}, nil
	}
	return s.groups.Clone(), nil
}

func (s *fakeGroupStore) Write(groups domain.Groups) (domain.Groups, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return nil, s.failWrite
	}
	s.groups = groups.Sanitize()
	s.writes++
	return s.groups.Clone(), nil
}

type fakeAliasStore struct {
	mu        sync.Mutex
	aliases   domain.AliasMap
	failWrite error
	enter     chan struct{}
	release   chan struct{}
}

func (s *fakeAliasStore) Read() (domain.AliasMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aliases == nil {
		return domain.AliasMap{}, nil
	}
	return s.aliases.Clone(), nil
}

func (s *fakeAliasStore) Write(aliases domain.AliasMap) (domain.AliasMap, error) {
	if s.enter != nil {
		s.enter <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return nil, s.failWrite
	}
	s.aliases = aliases.Sanitize()
	return s.aliases.Clone(), nil
}

func (s *fakeAliasStore) Merge(aliases domain.AliasMap) (domain.AliasMap, error) {
	existing, err := s.Read()
	if err != nil {
		return nil, err
	}
	for key, alias := range aliases {
		existing[key] = alias
	}
	return s.Write(existing)
}

type fakeAutostartStore struct {
	mu        sync.Mutex
	cfg       domain.AutostartConfig
	failWrite error
}

func (s *fakeAutostartStore) Read() (domain.AutostartConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone(), nil
}

func (s *fakeAutostartStore) Write(cfg domain.AutostartConfig) (domain.AutostartConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return domain.AutostartConfig{}, s.failWrite
	}
	s.cfg = cfg.Sanitize()
	return s.cfg.Clone(), nil
}

type boardFixture struct {
	board    *Board
	runtime  *fakeRuntime
	groups   *fakeGroupStore
	gAliases *fakeAliasStore
	cAliases *fakeAliasStore
	auto     *fakeAutostartStore
	local    *fakeLocalStore
}

func newFixture(t *testing.T, containers ...domain.Container) *boardFixture {
	t.Helper()
	f := &boardFixture{
		runtime:  newFakeRuntime(containers...),
		groups:   &fakeGroupStore{},
		gAliases: &fakeAliasStore{},
		cAliases: &fakeAliasStore{},
		auto:     &fakeAutostartStore{},
		local:    &fakeLocalStore{},
	}
	f.board = New(Deps{
		Runtime:          f.runtime,
		Groups:           f.groups,
		GroupAliases:     f.gAliases,
		ContainerAliases: f.cAliases,
		Autostart:        f.auto,
		Local:            f.local,
	})
	return f
}

func (f *boardFixture) refresh(t *testing.T) {
	t.Helper()
	if err := f.board.Refresh(context.Background(), false); err != nil {
		t.Fatal(err)
	}
}

func TestRefreshAutoGroupsAndPersists(t *testing.T) {
	f := newFixture(t,
		domain.Container{ID: "c1", Name: "web-1", State: "running"},
		domain.Container{ID: "c2", Name: "web-2", State: "exited"},
		domain.Container{ID: "c3", Name: "redis", State: "running"},
	)
	f.refresh(t)

	snap := f.board.Snapshot()
	if !reflect.DeepEqual(snap.Groups["web"], []string{"c1", "c2"}) {
		t.Errorf("web group = %v, want [c1 c2]", snap.Groups["web"])
	}
	if _, exists := snap.Groups["redis"]; exists {
		t.Error("lone container must stay standalone")
	}
	if f.groups.writes != 1 {
		t.Errorf("group writes = %d, want 1", f.groups.writes)
	}

	// A second refresh finds nothing new to persist.
	f.refresh(t)
	if f.groups.writes != 1 {
		t.Errorf("group writes after second refresh = %d, want 1", f.groups.writes)
	}
}

func TestMutationRollbackRestoresSnapshot(t *testing.T) {
	f := newFixture(t, domain.Container{ID: "c1", Name: "web-1"})
	f.groups.groups = domain.Groups{"web": {"c1"}}
	f.refresh(t)

	before := f.board.Snapshot()
	f.gAliases.failWrite = errors.New("disk full")

	result, err := f.board.SetGroupAlias(context.Background(), "web", domain.Alias{Alias: "Web"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeRolledBack {
		t.Fatalf("outcome = %v, want rolled-back", result.Outcome)
	}
	if result.Err == nil {
		t.Error("rolled-back result must carry the primary error")
	}
	if after := f.board.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Errorf("snapshot not restored:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestSetGroupAutostartAppliesPolicyToMembers(t *testing.T) {
	f := newFixture(t,
		domain.Container{ID: "c1", Name: "web-1", RestartPolicy: domain.PolicyNo},
		domain.Container{ID: "c2", Name: "web-2", RestartPolicy: domain.PolicyNo},
	)
	f.groups.groups = domain.Groups{"web": {"c1", "c2"}}
	f.refresh(t)

	result, err := f.board.SetGroupAutostart(context.Background(), "web", true)
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeConfirmed {
		t.Fatalf("outcome = %v, want confirmed", result.Outcome)
	}

	if !f.auto.cfg.HasGroup("web") {
		t.Error("autostart config missing the group")
	}
	for _, id := range []string{"c1", "c2"} {
		calls := f.runtime.policies(id)
		if !reflect.DeepEqual(calls, []string{domain.PolicyUnlessStopped}) {
			t.Errorf("policy calls for %s = %v, want [unless-stopped]", id, calls)
		}
	}

	snap := f.board.Snapshot()
	for _, id := range []string{"c1", "c2"} {
		c, _ := snap.Container(id)
		if c.RestartPolicy != domain.PolicyUnlessStopped {
			t.Errorf("%s mirrored policy = %q, want unless-stopped", id, c.RestartPolicy)
		}
	}

	status, err := f.board.Resolve("c1")
	if err != nil {
		t.Fatal(err)
	}
	if !status.Enabled || status.Attribution != AttributionGroup {
		t.Errorf("status = %+v, want enabled via group", status)
	}
	if status.Writable {
		t.Error("grouped member must be read-only at the container level")
	}
}

func TestSetGroupAutostartPartialOnMemberFailure(t *testing.T) {
	f := newFixture(t,
		domain.Container{ID: "c1", Name: "web-1", RestartPolicy: domain.PolicyNo},
		domain.Container{ID: "c2", Name: "web-2", RestartPolicy: domain.PolicyNo},
	)
	f.groups.groups = domain.Groups{"web": {"c1", "c2"}}
	f.refresh(t)
	f.runtime.policyErr["c2"] = errors.New("daemon hiccup")

	result, err := f.board.SetGroupAutostart(context.Background(), "web", true)
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomePartial {
		t.Fatalf("outcome = %v, want partial", result.Outcome)
	}
	if len(result.SecondaryErrs) != 1 {
		t.Errorf("secondary errors = %v, want one", result.SecondaryErrs)
	}

	// The declared config keeps the group enabled; the failed member got a
	// best-effort compensation back to its previous policy.
	if !f.auto.cfg.HasGroup("web") {
		t.Error("partial outcome must keep the primary write")
	}
	if calls := f.runtime.policies("c2"); !reflect.DeepEqual(calls, []string{domain.PolicyUnlessStopped, domain.PolicyNo}) {
		t.Errorf("policy calls for c2 = %v, want attempt then compensation", calls)
	}
	if calls := f.runtime.policies("c1"); !reflect.DeepEqual(calls, []string{domain.PolicyUnlessStopped}) {
		t.Errorf("policy calls for c1 = %v, want the update only", calls)
	}
}

func TestSetContainerAutostartRejectsGroupedContainer(t *testing.T) {
	f := newFixture(t, domain.Container{ID: "c1", Name: "web-1"})
	f.groups.groups = domain.Groups{"web": {"c1"}}
	f.refresh(t)

	if _, err := f.board.SetContainerAutostart(context.Background(), "c1", true); err == nil {
		t.Fatal("expected a rejection for a grouped container")
	}
	if f.auto.cfg.HasContainer("c1") {
		t.Error("rejected toggle must not touch the config")
	}
}

func TestSetContainerAutostartStandalone(t *testing.T) {
	f := newFixture(t, domain.Container{ID: "c1", Name: "redis", RestartPolicy: domain.PolicyNo})
	f.refresh(t)

	result, err := f.board.SetContainerAutostart(context.Background(), "c1", true)
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeConfirmed {
		t.Fatalf("outcome = %v, want confirmed", result.Outcome)
	}
	if !f.auto.cfg.HasContainer("c1") {
		t.Error("autostart config missing the container")
	}
	if calls := f.runtime.policies("c1"); !reflect.DeepEqual(calls, []string{domain.PolicyUnlessStopped}) {
		t.Errorf("policy calls = %v, want [unless-stopped]", calls)
	}

	status, err := f.board.Resolve("c1")
	if err != nil {
		t.Fatal(err)
	}
	if status.Attribution != AttributionIndividual {
		t.Errorf("attribution = %q, want %q", status.Attribution, AttributionIndividual)
	}
}

func TestMutationBusyControl(t *testing.T) {
	f := newFixture(t, domain.Container{ID: "c1", Name: "web-1"})
	f.groups.groups = domain.Groups{"web": {"c1"}}
	f.refresh(t)

	f.gAliases.enter = make(chan struct{}, 1)
	f.gAliases.release = make(chan struct{})

	done := make(chan MutationResult, 1)
	go func() {
		result, _ := f.board.SetGroupAlias(context.Background(), "web", domain.Alias{Alias: "first"})
		done <- result
	}()
	<-f.gAliases.enter // first mutation is inside its persist step

	result, err := f.board.SetGroupAlias(context.Background(), "web", domain.Alias{Alias: "second"})
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(result.Err, ErrBusy) {
		t.Errorf("second mutation error = %v, want ErrBusy", result.Err)
	}

	close(f.gAliases.release)
	if first := <-done; first.Outcome != OutcomeConfirmed {
		t.Errorf("first mutation outcome = %v, want confirmed", first.Outcome)
	}
}

func TestCreateGroupPinsUntilPopulated(t *testing.T) {
	f := newFixture(t, domain.Container{ID: "c1", Name: "redis", State: "running"})
	f.refresh(t)

	result, err := f.board.CreateGroup(context.Background(), "fresh")
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeConfirmed {
		t.Fatalf("outcome = %v, want confirmed", result.Outcome)
	}

	cards := f.board.Cards()
	if len(cards) == 0 || cards[0].Key != "fresh" || !cards[0].Pinned {
		t.Fatalf("cards = %+v, want the pinned empty group first", cards)
	}

	// Filters never hide the pinned group.
	f.board.SetFilter("redis")
	f.board.SetRunningOnly(true)
	cards = f.board.Cards()
	if len(cards) == 0 || cards[0].Key != "fresh" {
		t.Errorf("pinned group hidden by filters: %+v", cards)
	}

	// Populating the group unpins it.
	if _, err := f.board.SetGroupMembers(context.Background(), "fresh", []string{"c1"}); err != nil {
		t.Fatal(err)
	}
	for _, card := range f.board.Cards() {
		if card.Key == "fresh" && card.Pinned {
			t.Error("populated group still pinned")
		}
	}
}

func TestCreateGroupValidation(t *testing.T) {
	f := newFixture(t)
	f.refresh(t)

	if _, err := f.board.CreateGroup(context.Background(), "  "); err == nil {
		t.Error("blank name must be rejected")
	}
	if _, err := f.board.CreateGroup(context.Background(), "dup"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.board.CreateGroup(context.Background(), "dup"); err == nil {
		t.Error("duplicate name must be rejected")
	}
}

func TestCardsFilters(t *testing.T) {
	f := newFixture(t,
		domain.Container{ID: "c1", Name: "alpha", State: "running"},
		domain.Container{ID: "c2", Name: "beta", State: "exited"},
	)
	f.refresh(t)

	f.board.SetFilter("alp")
	cards := f.board.Cards()
	if len(cards) != 1 || cards[0].Key != "c1" {
		t.Errorf("filtered cards = %+v, want only alpha", cards)
	}

	f.board.SetFilter("")
	f.board.SetRunningOnly(true)
	cards = f.board.Cards()
	if len(cards) != 1 || cards[0].Key != "c1" {
		t.Errorf("running-only cards = %+v, want only alpha", cards)
	}

	// Organize mode clears and ignores filters.
	f.board.SetOrganizeMode(true)
	if cards := f.board.Cards(); len(cards) != 2 {
		t.Errorf("organize cards = %+v, want both containers", cards)
	}
}

func TestCardsFilterMatchesAlias(t *testing.T) {
	f := newFixture(t, domain.Container{ID: "c1", Name: "cryptic", State: "running"})
	f.refresh(t)
	if _, err := f.board.SetContainerAlias(context.Background(), "c1", domain.Alias{Alias: "Jellyfin"}); err != nil {
		t.Fatal(err)
	}

	f.board.SetFilter("jelly")
	cards := f.board.Cards()
	if len(cards) != 1 || cards[0].Label != "Jellyfin" {
		t.Errorf("cards = %+v, want the aliased container", cards)
	}
}

func TestDragCommitPersistsContiguousOrders(t *testing.T) {
	f := newFixture(t,
		domain.Container{ID: "c1", Name: "web-1", State: "running"},
		domain.Container{ID: "c2", Name: "web-2", State: "running"},
		domain.Container{ID: "c3", Name: "zeta", State: "running"},
	)
	f.refresh(t)
	// Snapshot now holds group "web" (c1, c2) and standalone "zeta".

	f.board.SetOrganizeMode(true)
	if err := f.board.BeginDrag("c3"); err != nil {
		t.Fatal(err)
	}
	if err := f.board.DragOver("web", true); err != nil {
		t.Fatal(err)
	}
	result, err := f.board.EndDrag(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeConfirmed {
		t.Fatalf("outcome = %v, want confirmed", result.Outcome)
	}

	snap := f.board.Snapshot()
	if alias := snap.ContainerAliases["c3"]; alias.Order == nil || *alias.Order != 0 {
		t.Errorf("container order = %+v, want 0", alias.Order)
	}
	if alias := snap.GroupAliases["web"]; alias.Order == nil || *alias.Order != 1 {
		t.Errorf("group order = %+v, want 1", alias.Order)
	}

	// The persisted documents carry the same orders.
	if alias := f.cAliases.aliases["c3"]; alias.Order == nil || *alias.Order != 0 {
		t.Errorf("stored container order = %+v, want 0", alias.Order)
	}
	if alias := f.gAliases.aliases["web"]; alias.Order == nil || *alias.Order != 1 {
		t.Errorf("stored group order = %+v, want 1", alias.Order)
	}

	// The committed order wins over the default sort.
	f.board.SetOrganizeMode(false)
	cards := f.board.Cards()
	if len(cards) != 2 || cards[0].Key != "c3" || cards[1].Key != "web" {
		t.Errorf("cards = %+v, want [c3 web]", cards)
	}
}

func TestBeginDragRequiresOrganizeMode(t *testing.T) {
	f := newFixture(t, domain.Container{ID: "c1", Name: "redis"})
	f.refresh(t)

	if err := f.board.BeginDrag("c1"); err == nil {
		t.Error("drag outside organize mode must fail")
	}
}

func TestCommitOrderRequiresOrganizeMode(t *testing.T) {
	f := newFixture(t,
		domain.Container{ID: "c1", Name: "alpha", State: "running"},
		domain.Container{ID: "c2", Name: "beta", State: "exited"},
	)
	f.refresh(t)

	f.board.SetOrganizeMode(true)
	if _, err := f.board.CommitOrder(context.Background(), []string{"c1", "c2"}); err != nil {
		t.Fatal(err)
	}
	f.board.SetOrganizeMode(false)

	// With organize off and a filter active only c2 is visible; committing
	// that subset would give c2 order 0 and collide with c1's stored order.
	f.board.SetFilter("beta")
	if _, err := f.board.CommitOrder(context.Background(), []string{"c2"}); err == nil {
		t.Fatal("commit outside organize mode must be rejected")
	}

	snap := f.board.Snapshot()
	orders := make(map[string]int)
	for id, alias := range snap.ContainerAliases {
		if alias.Order == nil {
			t.Fatalf("container %s lost its order", id)
		}
		orders[id] = *alias.Order
	}
	if orders["c1"] != 0 || orders["c2"] != 1 {
		t.Errorf("orders = %v, want c1=0 c2=1 untouched", orders)
	}
}

func TestCommitOrderRejectsBadSequence(t *testing.T) {
	f := newFixture(t,
		domain.Container{ID: "c1", Name: "alpha"},
		domain.Container{ID: "c2", Name: "beta"},
	)
	f.refresh(t)
	f.board.SetOrganizeMode(true)

	if _, err := f.board.CommitOrder(context.Background(), []string{"c1"}); err == nil {
		t.Error("incomplete sequence must be rejected")
	}
	if _, err := f.board.CommitOrder(context.Background(), []string{"c1", "ghost"}); err == nil {
		t.Error("unknown key must be rejected")
	}
}

func TestDeleteGroupUnpins(t *testing.T) {
	f := newFixture(t)
	f.refresh(t)

	if _, err := f.board.CreateGroup(context.Background(), "fresh"); err != nil {
		t.Fatal(err)
	}
	if !f.board.pinned.Contains("fresh") {
		t.Fatal("created group not pinned")
	}
	if _, err := f.board.DeleteGroup(context.Background(), "fresh"); err != nil {
		t.Fatal(err)
	}
	if f.board.pinned.Contains("fresh") {
		t.Error("deleted group still pinned")
	}
}
