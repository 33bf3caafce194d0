package board

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dockboard/dockboard/internal/core/domain"
	"github.com/dockboard/dockboard/internal/core/ports"
)

// GroupStatus is the rendered autostart view of a group card.
type GroupStatus struct {
	Enabled bool `json:"enabled"`
	Members int  `json:"members"`
	Running int  `json:"running"`
}

// Board presents the container fleet as reorderable, groupable cards and
// keeps the three autostart authority sources reconciled into one view.
type Board struct {
	log      *logrus.Entry
	runtime  ports.ContainerRuntime
	groups   ports.GroupStore
	gAliases ports.AliasStore
	cAliases ports.AliasStore
	auto     ports.AutostartStore
	pinned   *PinnedTracker
	notifier ports.Notifier

	store *EntityStore

	inflightMu sync.Mutex
	inflight   map[string]bool

	mu          sync.Mutex
	organize    bool
	filterText  string
	runningOnly bool
	drag        *DragList
	dragKey     string
}

// Deps bundles the collaborators a Board needs.
type Deps struct {
	Runtime          ports.ContainerRuntime
	Groups           ports.GroupStore
	GroupAliases     ports.AliasStore
	ContainerAliases ports.AliasStore
	Autostart        ports.AutostartStore
	Local            ports.LocalStore
	Notifier         ports.Notifier
	Log              *logrus.Entry
}

// New creates a Board. Call Refresh before rendering.
func New(deps Deps) *Board {
	if deps.Notifier == nil {
		deps.Notifier = NopNotifier{}
	}
	if deps.Log == nil {
		deps.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Board{
		log:      deps.Log,
		runtime:  deps.Runtime,
		groups:   deps.Groups,
		gAliases: deps.GroupAliases,
		cAliases: deps.ContainerAliases,
		auto:     deps.Autostart,
		pinned:   NewPinnedTracker(deps.Local),
		notifier: deps.Notifier,
		store:    NewEntityStore(),
		inflight: make(map[string]bool),
	}
}

// NopNotifier discards notifications; useful in tests and batch tools.
type NopNotifier struct{}

func (NopNotifier) Info(string)  {}
func (NopNotifier) Error(string) {}

// Snapshot exposes a copy of the current entity snapshot.
func (b *Board) Snapshot() Snapshot {
	return b.store.Snapshot()
}

// Refresh replaces the entity snapshot wholesale from the runtime and the
// stores, runs the auto-grouping classifier and reconciles the pinned set.
// The classifier persists silently on a background refresh and notifies when
// the refresh was a deliberate user action.
func (b *Board) Refresh(ctx context.Context, userTriggered bool) error {
	containers, err := b.runtime.List(ctx)
	if err != nil {
		return fmt.Errorf("listing containers: %w", err)
	}
	groups, err := b.groups.Read()
	if err != nil {
		return fmt.Errorf("reading groups: %w", err)
	}
	groupAliases, err := b.gAliases.Read()
	if err != nil {
		return fmt.Errorf("reading group aliases: %w", err)
	}
	containerAliases, err := b.cAliases.Read()
	if err != nil {
		return fmt.Errorf("reading container aliases: %w", err)
	}
	autostart, err := b.auto.Read()
	if err != nil {
		return fmt.Errorf("reading autostart config: %w", err)
	}

	snap := Snapshot{
		Containers:       containers,
		Groups:           groups,
		GroupAliases:     groupAliases,
		ContainerAliases: containerAliases,
		Autostart:        autostart,
	}

	if result := AutoGroup(containers, groups); result.Changed() {
		saved, err := b.groups.Write(result.Groups)
		if err != nil {
			// Keep the refreshed snapshot; grouping retries on the next pass.
			b.log.WithError(err).Warn("persisting auto-grouped containers failed")
		} else {
			snap.Groups = saved
			b.log.WithFields(logrus.Fields{
				"created": result.Created,
				"filled":  result.Filled,
			}).Info("auto-grouped containers")
			if userTriggered {
				b.notifier.Info(fmt.Sprintf("grouped containers into %d group(s)", len(result.Created)+len(result.Filled)))
			}
		}
	}

	b.store.Replace(snap)
	if err := b.pinned.Reconcile(snap.Groups); err != nil {
		b.log.WithError(err).Warn("reconciling pinned groups failed")
	}
	return nil
}

// Cards projects the current snapshot into the render list: pinned-empty
// groups first, then groups and standalone containers in the total card
// order. Text and running-only filters apply only outside organize mode.
func (b *Board) Cards() []Card {
	snap := b.store.Snapshot()

	b.mu.Lock()
	organize := b.organize
	filter := strings.ToLower(strings.TrimSpace(b.filterText))
	runningOnly := b.runningOnly
	b.mu.Unlock()

	if err := b.pinned.Reconcile(snap.Groups); err != nil {
		b.log.WithError(err).Warn("reconciling pinned groups failed")
	}

	byID := make(map[string]domain.Container, len(snap.Containers))
	for _, c := range snap.Containers {
		byID[c.ID] = c
	}

	var pinnedCards, rest []Card
	for _, name := range snap.Groups.Names() {
		members := snap.Groups[name]
		alias := snap.GroupAliases[name]
		label := alias.Alias
		if label == "" {
			label = name
		}
		running := 0
		for _, id := range members {
			if c, ok := byID[id]; ok && c.Running() {
				running++
			}
		}
		card := Card{
			Kind:   KindGroup,
			Key:    name,
			Label:  label,
			Order:  alias.Order,
			Pinned: len(members) == 0 && b.pinned.Contains(name),
			Status: GroupStatus{
				Enabled: snap.Autostart.HasGroup(name),
				Members: len(members),
				Running: running,
			},
		}
		if card.Pinned {
			pinnedCards = append(pinnedCards, card)
			continue
		}
		if !organize {
			if filter != "" && !strings.Contains(strings.ToLower(label), filter) {
				continue
			}
			if runningOnly && running == 0 {
				continue
			}
		}
		rest = append(rest, card)
	}

	covered := snap.Groups.Covered()
	for _, c := range snap.Containers {
		if covered[c.ID] {
			continue
		}
		alias := snap.ContainerAliases[c.ID]
		label := alias.Alias
		if label == "" {
			label = c.Name
		}
		if !organize {
			if filter != "" && !strings.Contains(strings.ToLower(label), filter) {
				continue
			}
			if runningOnly && !c.Running() {
				continue
			}
		}
		rest = append(rest, Card{
			Kind:   KindContainer,
			Key:    c.ID,
			Label:  label,
			Order:  alias.Order,
			Status: ResolveAutostart(c, nil, snap.Autostart),
		})
	}

	SortCards(pinnedCards)
	SortCards(rest)
	return append(pinnedCards, rest...)
}

// Resolve derives the autostart status of one container from the current
// snapshot.
func (b *Board) Resolve(id string) (AutostartStatus, error) {
	snap := b.store.Snapshot()
	c, ok := snap.Container(id)
	if !ok {
		return AutostartStatus{}, ports.ErrNotFound
	}
	return ResolveAutostart(c, snap.Groups.Containing(id), snap.Autostart), nil
}

// SetOrganizeMode toggles organize mode. Enabling it clears the text filter
// and the running-only filter; filtering and manual ordering are mutually
// exclusive. Disabling it drops any unfinished drag.
func (b *Board) SetOrganizeMode(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.organize = on
	b.drag = nil
	b.dragKey = ""
	if on {
		b.filterText = ""
		b.runningOnly = false
	}
}

// OrganizeMode reports whether organize mode is active.
func (b *Board) OrganizeMode() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.organize
}

// SetFilter updates the text filter.
func (b *Board) SetFilter(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filterText = text
}

// SetRunningOnly updates the running-only filter.
func (b *Board) SetRunningOnly(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runningOnly = on
}

// BeginDrag starts a drag in organize mode. Pinned cards are not draggable.
func (b *Board) BeginDrag(key string) error {
	cards := b.Cards()

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.organize {
		return fmt.Errorf("organize mode is off")
	}
	list := NewDragList(cards)
	found := false
	for _, c := range list.Cards() {
		if c.Key == key {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("card %q is not draggable", key)
	}
	b.drag = list
	b.dragKey = key
	return nil
}

// DragOver relocates the dragged card before or after the hovered card,
// depending on the pointer side of the hovered card's midpoint. The move is
// applied immediately; there is no deferred commit.
func (b *Board) DragOver(hoverKey string, above bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.drag == nil {
		return fmt.Errorf("no drag in progress")
	}
	b.drag.Move(b.dragKey, hoverKey, above)
	return nil
}

// EndDrag commits the final sequence of the active drag.
func (b *Board) EndDrag(ctx context.Context) (MutationResult, error) {
	b.mu.Lock()
	drag := b.drag
	b.drag = nil
	b.dragKey = ""
	b.mu.Unlock()
	if drag == nil {
		return MutationResult{}, fmt.Errorf("no drag in progress")
	}
	return b.commitAssignments(ctx, drag.Commit()), nil
}

// CommitOrder commits an explicit final top-to-bottom sequence of non-pinned
// card keys, assigning contiguous zero-based orders. Commits happen only in
// organize mode, where the card list is unfiltered; a commit against a
// filtered subset would renumber only the visible cards and collide with the
// hidden ones' existing orders.
func (b *Board) CommitOrder(ctx context.Context, sequence []string) (MutationResult, error) {
	b.mu.Lock()
	organize := b.organize
	b.mu.Unlock()
	if !organize {
		return MutationResult{}, fmt.Errorf("organize mode is off")
	}

	list := NewDragList(b.Cards())
	if err := list.Reorder(sequence); err != nil {
		return MutationResult{}, err
	}
	return b.commitAssignments(ctx, list.Commit()), nil
}

// commitAssignments writes committed orders into both alias documents and
// persists the group document and the container-alias batch concurrently,
// surfacing a single confirmation once both land.
func (b *Board) commitAssignments(ctx context.Context, assignments []OrderAssignment) MutationResult {
	var touched domain.AliasMap
	apply := func(snap *Snapshot) {
		if snap.GroupAliases == nil {
			snap.GroupAliases = domain.AliasMap{}
		}
		if snap.ContainerAliases == nil {
			snap.ContainerAliases = domain.AliasMap{}
		}
		touched = ApplyAssignments(assignments, snap.GroupAliases, snap.ContainerAliases)
	}

	persist := func(ctx context.Context) error {
		snap := b.store.Snapshot()

		var (
			wg                  sync.WaitGroup
			groupsErr, mergeErr error
			savedGroups         domain.Groups
			savedGroupAliases   domain.AliasMap
			mergedAliases       domain.AliasMap
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			savedGroups, groupsErr = b.groups.Write(snap.Groups)
			if groupsErr == nil {
				savedGroupAliases, groupsErr = b.gAliases.Write(snap.GroupAliases)
			}
		}()
		go func() {
			defer wg.Done()
			mergedAliases, mergeErr = b.cAliases.Merge(touched)
		}()
		wg.Wait()

		if groupsErr != nil {
			return fmt.Errorf("saving groups: %w", groupsErr)
		}
		if mergeErr != nil {
			return fmt.Errorf("saving container aliases: %w", mergeErr)
		}

		b.store.Update(func(s *Snapshot) {
			s.Groups = savedGroups
			s.GroupAliases = savedGroupAliases
			s.ContainerAliases = mergedAliases
		})
		return nil
	}

	result := b.runMutation(ctx, "order", apply, persist, nil)
	if result.Outcome == OutcomeConfirmed {
		b.notifier.Info("card order saved")
	}
	return result
}

// SetContainerAutostart toggles the individual autostart flag of a container
// outside any group. The restart-policy update is the secondary effect: it
// runs after the config write confirmed and never rolls the config back.
func (b *Board) SetContainerAutostart(ctx context.Context, id string, enabled bool) (MutationResult, error) {
	snap := b.store.Snapshot()
	c, ok := snap.Container(id)
	if !ok {
		return MutationResult{}, ports.ErrNotFound
	}
	if owners := snap.Groups.Containing(id); len(owners) > 0 {
		return MutationResult{}, fmt.Errorf("container %s belongs to group %q; toggle the group instead", id, owners[0])
	}

	apply := func(s *Snapshot) {
		s.Autostart = s.Autostart.WithContainer(id, enabled)
	}
	secondary := b.policyEffect(id, desiredPolicy(enabled), c.RestartPolicy)
	result := b.runMutation(ctx, "autostart/"+id, apply, b.persistAutostart, []secondaryEffect{secondary})
	if result.Outcome == OutcomeConfirmed {
		b.notifier.Info("autostart updated")
	}
	return result, nil
}

// SetGroupAutostart toggles group autostart and fans the restart-policy
// update out to every member with unordered parallel calls. A member failure
// leaves the group's declared policy and that member's live policy
// inconsistent; this is an accepted property, reported as a partial outcome.
func (b *Board) SetGroupAutostart(ctx context.Context, name string, enabled bool) (MutationResult, error) {
	snap := b.store.Snapshot()
	members, ok := snap.Groups[name]
	if !ok {
		return MutationResult{}, ports.ErrNotFound
	}

	apply := func(s *Snapshot) {
		s.Autostart = s.Autostart.WithGroup(name, enabled)
	}
	var secondaries []secondaryEffect
	for _, id := range members {
		prev := domain.PolicyNo
		if c, ok := snap.Container(id); ok {
			prev = c.RestartPolicy
		}
		secondaries = append(secondaries, b.policyEffect(id, desiredPolicy(enabled), prev))
	}
	result := b.runMutation(ctx, "autostart-group/"+name, apply, b.persistAutostart, secondaries)
	if result.Outcome == OutcomeConfirmed {
		b.notifier.Info("group autostart updated")
	}
	return result, nil
}

func desiredPolicy(enabled bool) string {
	if enabled {
		return domain.PolicyUnlessStopped
	}
	return domain.PolicyNo
}

// persistAutostart writes the autostart document from the latest snapshot
// and mirrors the confirmed config back.
func (b *Board) persistAutostart(ctx context.Context) error {
	cfg := b.store.Snapshot().Autostart
	saved, err := b.auto.Write(cfg)
	if err != nil {
		return fmt.Errorf("saving autostart config: %w", err)
	}
	b.store.Update(func(s *Snapshot) { s.Autostart = saved })
	return nil
}

// policyEffect builds the secondary effect updating one container's restart
// policy. The mirrored value comes from the runtime's confirmed answer, not
// the locally assumed one; compensation restores the previous policy
// best-effort.
func (b *Board) policyEffect(id, desired, previous string) secondaryEffect {
	return secondaryEffect{
		call: func(ctx context.Context) error {
			confirmed, err := b.runtime.SetRestartPolicy(ctx, id, desired)
			if err != nil {
				return fmt.Errorf("restart policy for %s: %w", shortID(id), err)
			}
			b.store.Update(func(s *Snapshot) {
				for i := range s.Containers {
					if s.Containers[i].ID == id {
						s.Containers[i].RestartPolicy = confirmed
					}
				}
			})
			return nil
		},
		compensate: func(ctx context.Context) {
			if previous == "" {
				previous = domain.PolicyNo
			}
			if _, err := b.runtime.SetRestartPolicy(ctx, id, previous); err != nil {
				b.log.WithError(err).WithField("container", shortID(id)).Debug("restoring restart policy failed")
			}
		},
	}
}

// SetGroupAlias updates a group's alias metadata optimistically.
func (b *Board) SetGroupAlias(ctx context.Context, name string, alias domain.Alias) (MutationResult, error) {
	snap := b.store.Snapshot()
	if _, ok := snap.Groups[name]; !ok {
		return MutationResult{}, ports.ErrNotFound
	}
	apply := func(s *Snapshot) {
		if s.GroupAliases == nil {
			s.GroupAliases = domain.AliasMap{}
		}
		if alias.Empty() {
			delete(s.GroupAliases, name)
		} else {
			s.GroupAliases[name] = alias
		}
	}
	persist := func(ctx context.Context) error {
		saved, err := b.gAliases.Write(b.store.Snapshot().GroupAliases)
		if err != nil {
			return fmt.Errorf("saving group aliases: %w", err)
		}
		b.store.Update(func(s *Snapshot) { s.GroupAliases = saved })
		return nil
	}
	return b.runMutation(ctx, "group-alias/"+name, apply, persist, nil), nil
}

// SetContainerAlias updates a container's alias metadata optimistically. The
// store merges the single entry and returns the complete map, which replaces
// the mirrored document.
func (b *Board) SetContainerAlias(ctx context.Context, id string, alias domain.Alias) (MutationResult, error) {
	if _, ok := b.store.Snapshot().Container(id); !ok {
		return MutationResult{}, ports.ErrNotFound
	}
	apply := func(s *Snapshot) {
		if s.ContainerAliases == nil {
			s.ContainerAliases = domain.AliasMap{}
		}
		if alias.Empty() {
			delete(s.ContainerAliases, id)
		} else {
			s.ContainerAliases[id] = alias
		}
	}
	persist := func(ctx context.Context) error {
		merged, err := b.cAliases.Merge(domain.AliasMap{id: alias})
		if err != nil {
			return fmt.Errorf("saving container alias: %w", err)
		}
		b.store.Update(func(s *Snapshot) { s.ContainerAliases = merged })
		return nil
	}
	return b.runMutation(ctx, "container-alias/"+id, apply, persist, nil), nil
}

// CreateGroup creates an empty group and pins it so it stays visible and
// non-reorderable until populated. Duplicate or empty names are rejected
// before any remote call.
func (b *Board) CreateGroup(ctx context.Context, name string) (MutationResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return MutationResult{}, fmt.Errorf("group name is required")
	}
	if _, exists := b.store.Snapshot().Groups[name]; exists {
		return MutationResult{}, fmt.Errorf("group %q already exists", name)
	}
	apply := func(s *Snapshot) {
		if s.Groups == nil {
			s.Groups = domain.Groups{}
		}
		s.Groups[name] = []string{}
	}
	result := b.runMutation(ctx, "group-create/"+name, apply, b.persistGroups, nil)
	if result.Outcome == OutcomeConfirmed {
		if err := b.pinned.Pin(name); err != nil {
			b.log.WithError(err).Warn("pinning new group failed")
		}
		b.notifier.Info("group created")
	}
	return result, nil
}

// DeleteGroup removes a group and its alias metadata.
func (b *Board) DeleteGroup(ctx context.Context, name string) (MutationResult, error) {
	if _, ok := b.store.Snapshot().Groups[name]; !ok {
		return MutationResult{}, ports.ErrNotFound
	}
	apply := func(s *Snapshot) {
		delete(s.Groups, name)
		delete(s.GroupAliases, name)
	}
	result := b.runMutation(ctx, "group-delete/"+name, apply, b.persistGroups, nil)
	if result.Outcome == OutcomeConfirmed {
		if err := b.pinned.Unpin(name); err != nil {
			b.log.WithError(err).Warn("unpinning group failed")
		}
	}
	return result, nil
}

// SetGroupMembers replaces a group's membership set.
func (b *Board) SetGroupMembers(ctx context.Context, name string, ids []string) (MutationResult, error) {
	if _, ok := b.store.Snapshot().Groups[name]; !ok {
		return MutationResult{}, ports.ErrNotFound
	}
	apply := func(s *Snapshot) {
		s.Groups[name] = append([]string(nil), ids...)
	}
	result := b.runMutation(ctx, "group-members/"+name, apply, b.persistGroups, nil)
	if result.Outcome == OutcomeConfirmed {
		if err := b.pinned.Reconcile(b.store.Snapshot().Groups); err != nil {
			b.log.WithError(err).Warn("reconciling pinned groups failed")
		}
	}
	return result, nil
}

// SaveGroups replaces the whole groups document plus group aliases, the
// full-document save the organize UI issues.
func (b *Board) SaveGroups(ctx context.Context, groups domain.Groups, aliases domain.AliasMap) (MutationResult, error) {
	apply := func(s *Snapshot) {
		s.Groups = groups.Clone()
		if aliases != nil {
			s.GroupAliases = aliases.Clone()
		}
	}
	result := b.runMutation(ctx, "groups", apply, b.persistGroups, nil)
	if result.Outcome == OutcomeConfirmed {
		if err := b.pinned.Reconcile(b.store.Snapshot().Groups); err != nil {
			b.log.WithError(err).Warn("reconciling pinned groups failed")
		}
	}
	return result, nil
}

// persistGroups writes the group and group-alias documents from the latest
// snapshot and mirrors the confirmed documents back.
func (b *Board) persistGroups(ctx context.Context) error {
	snap := b.store.Snapshot()
	savedGroups, err := b.groups.Write(snap.Groups)
	if err != nil {
		return fmt.Errorf("saving groups: %w", err)
	}
	savedAliases, err := b.gAliases.Write(snap.GroupAliases)
	if err != nil {
		return fmt.Errorf("saving group aliases: %w", err)
	}
	b.store.Update(func(s *Snapshot) {
		s.Groups = savedGroups
		s.GroupAliases = savedAliases
	})
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
