package room

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hotelgo/server/internal/config"
	"github.com/hotelgo/server/internal/data"
	"github.com/hotelgo/server/internal/interaction"
	"github.com/hotelgo/server/internal/persist"
	"github.com/hotelgo/server/internal/scripting"
	"github.com/hotelgo/server/internal/session"
	"github.com/hotelgo/server/internal/trigger"
	"github.com/hotelgo/server/internal/world"
)

// Presence is told when a player lands in a room, so their friends
// can be notified. Optional; nil disables the fan-out.
type Presence interface {
	UserMovedRoom(ctx context.Context, userID, roomID int64)
}

// Manager loads rooms on demand and owns their tick goroutines. A room
// stays resident while players are inside and for the idle-eviction
// window after the last one leaves; then it is saved and dropped.
type Manager struct {
	cfg        *config.Config
	log        *zap.Logger
	models     *data.ModelTable
	roomRepo   *persist.RoomRepo
	itemRepo   *persist.ItemRepo
	petRepo    *persist.PetRepo
	saver      *persist.Saver
	dispatch   *interaction.Dispatcher
	triggers   *trigger.Registry
	presence   Presence
	scriptsDir string

	mu    sync.Mutex
	rooms map[int64]*activeRoom

	wg     sync.WaitGroup
	closed bool
}

type activeRoom struct {
	room   *Room
	engine *scripting.Engine // nil when scripts are absent
	stop   chan struct{}
	done   chan struct{}
}

// ManagerDeps bundles everything the manager needs at construction.
type ManagerDeps struct {
	Config     *config.Config
	Log        *zap.Logger
	Models     *data.ModelTable
	RoomRepo   *persist.RoomRepo
	ItemRepo   *persist.ItemRepo
	PetRepo    *persist.PetRepo
	Saver      *persist.Saver
	Dispatch   *interaction.Dispatcher
	Triggers   *trigger.Registry
	Presence   Presence
	ScriptsDir string
}

func NewManager(d ManagerDeps) *Manager {
	return &Manager{
		cfg:        d.Config,
		log:        d.Log,
		models:     d.Models,
		roomRepo:   d.RoomRepo,
		itemRepo:   d.ItemRepo,
		petRepo:    d.PetRepo,
		saver:      d.Saver,
		dispatch:   d.Dispatch,
		triggers:   d.Triggers,
		presence:   d.Presence,
		scriptsDir: d.ScriptsDir,
		rooms:      make(map[int64]*activeRoom),
	}
}

// EnterRoom puts an entity into a room, loading and starting the room
// if it is not resident. Blocks until the room accepts or rejects the
// entry.
func (m *Manager) EnterRoom(ctx context.Context, roomID int64, e *world.Entity, sess *session.Session) error {
	ar, err := m.ensureRoom(ctx, roomID)
	if err != nil {
		return err
	}
	reply := make(chan error, 1)
	if err := ar.room.Post(EnterCommand{Entity: e, Sess: sess, Reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		if err == nil && m.presence != nil && e.Kind == world.EntityPlayer {
			m.presence.UserMovedRoom(ctx, e.ID, roomID)
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LeaveRoom removes an entity. The room itself stays resident until
// the eviction sweep collects it.
func (m *Manager) LeaveRoom(roomID, entityID int64, sessID uint64) error {
	m.mu.Lock()
	ar, ok := m.rooms[roomID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("room %d: %w", roomID, ErrRoomClosed)
	}
	if err := ar.room.Post(LeaveCommand{EntityID: entityID}); err != nil {
		return err
	}
	return ar.room.Post(detachSessionCommand{sessID: sessID})
}

// Post forwards a command to a resident room.
func (m *Manager) Post(roomID int64, cmd Command) error {
	m.mu.Lock()
	ar, ok := m.rooms[roomID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("room %d: %w", roomID, ErrRoomClosed)
	}
	return ar.room.Post(cmd)
}

// ensureRoom returns the resident room, loading it when needed.
func (m *Manager) ensureRoom(ctx context.Context, roomID int64) (*activeRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrRoomClosed
	}
	if ar, ok := m.rooms[roomID]; ok {
		return ar, nil
	}

	ar, err := m.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	m.rooms[roomID] = ar
	m.wg.Add(1)
	go m.run(ar)
	m.log.Info("room loaded", zap.Int64("room", roomID))
	return ar, nil
}

// loadRoom assembles a Room from the database and catalogs.
func (m *Manager) loadRoom(ctx context.Context, roomID int64) (*activeRoom, error) {
	row, err := m.roomRepo.Load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	model := m.models.Get(row.Model)
	if model == nil {
		return nil, fmt.Errorf("room %d: model %q not in catalog", roomID, row.Model)
	}
	items, err := m.itemRepo.LoadByRoomID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("room %d items: %w", roomID, err)
	}
	pets, err := m.petRepo.LoadByRoomID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("room %d pets: %w", roomID, err)
	}

	var engine *scripting.Engine
	if m.scriptsDir != "" {
		engine, err = scripting.NewEngine(m.scriptsDir, m.log.With(zap.Int64("room", roomID)))
		if err != nil {
			return nil, fmt.Errorf("room %d scripts: %w", roomID, err)
		}
	}

	r := New(
		RoomInfo{ID: row.ID, Name: row.Name, OwnerID: row.OwnerID},
		model, items, pets,
		Deps{
			Config:      m.cfg.Game,
			Log:         m.log,
			Interaction: m.dispatch,
			Triggers:    m.triggers,
			Engine:      engine,
			Store:       &saverStore{saver: m.saver, items: m.itemRepo, pets: m.petRepo},
		},
	)
	return &activeRoom{
		room:   r,
		engine: engine,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// run is the room's tick goroutine.
func (m *Manager) run(ar *activeRoom) {
	defer m.wg.Done()
	defer close(ar.done)
	if ar.engine != nil {
		defer ar.engine.Close()
	}

	ticker := time.NewTicker(m.cfg.Game.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ar.room.Tick()
			if m.evictable(ar.room) {
				m.evict(ar)
				return
			}
		case <-ar.stop:
			ar.room.Tick() // final drain
			ar.room.Shutdown()
			return
		}
	}
}

// evictable reports whether the room has sat empty past the idle
// window with no timed effects still counting down.
func (m *Manager) evictable(r *Room) bool {
	if r.PlayerCount() > 0 || r.PendingEffects() > 0 {
		return false
	}
	return time.Since(r.IdleSince()) >= m.cfg.Game.RoomIdleEviction
}

func (m *Manager) evict(ar *activeRoom) {
	m.mu.Lock()
	delete(m.rooms, ar.room.ID())
	m.mu.Unlock()
	ar.room.Shutdown()
	m.log.Info("room evicted", zap.Int64("room", ar.room.ID()))
}

// Shutdown stops every room goroutine and waits for them.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	actives := make([]*activeRoom, 0, len(m.rooms))
	for _, ar := range m.rooms {
		actives = append(actives, ar)
	}
	m.rooms = make(map[int64]*activeRoom)
	m.mu.Unlock()

	for _, ar := range actives {
		close(ar.stop)
	}
	m.wg.Wait()
}

// ResidentRooms reports how many rooms are loaded.
func (m *Manager) ResidentRooms() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

// saverStore adapts the async Saver and repos to the room's Store.
type saverStore struct {
	saver *persist.Saver
	items *persist.ItemRepo
	pets  *persist.PetRepo
}

func (s *saverStore) SaveItemState(itemID int64, state string) {
	s.saver.Enqueue(func(ctx context.Context) error {
		return s.items.SaveState(ctx, itemID, state)
	})
}

func (s *saverStore) SaveItemPlacement(it *world.Item) {
	snapshot := *it
	s.saver.Enqueue(func(ctx context.Context) error {
		return s.items.SavePlacement(ctx, &snapshot)
	})
}

func (s *saverStore) DeleteItem(itemID int64) {
	s.saver.Enqueue(func(ctx context.Context) error {
		return s.items.Delete(ctx, itemID)
	})
}

func (s *saverStore) SavePetPosition(petID int64, x, y int) {
	s.saver.Enqueue(func(ctx context.Context) error {
		return s.pets.SavePosition(ctx, petID, x, y)
	})
}
