package data

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RoomModel describes one room layout template: a heightmap plus the
// door tile. Loaded from model_list.yaml; read-only after load.
type RoomModel struct {
	Name         string `yaml:"name"`
	Heightmap    string `yaml:"heightmap"` // rows separated by '|'
	DoorX        int    `yaml:"door_x"`
	DoorY        int    `yaml:"door_y"`
	DoorRotation int    `yaml:"door_rotation"`

	rows []string
}

type modelListFile struct {
	Models []RoomModel `yaml:"models"`
}

// ModelTable provides room model lookups by name.
type ModelTable struct {
	models map[string]*RoomModel
}

// LoadModelTable loads room models from YAML and validates their
// heightmaps.
func LoadModelTable(path string) (*ModelTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model list %s: %w", path, err)
	}
	var file modelListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse model list: %w", err)
	}

	t := &ModelTable{models: make(map[string]*RoomModel, len(file.Models))}
	for i := range file.Models {
		m := &file.Models[i]
		if err := m.parse(); err != nil {
			return nil, fmt.Errorf("model %s: %w", m.Name, err)
		}
		t.models[m.Name] = m
	}
	return t, nil
}

// NewRoomModel builds a model directly from a heightmap string. Used by
// tests and by layouts stored per-room in the database.
func NewRoomModel(name, heightmap string, doorX, doorY, doorRotation int) (*RoomModel, error) {
	m := &RoomModel{
		Name:         name,
		Heightmap:    heightmap,
		DoorX:        doorX,
		DoorY:        doorY,
		DoorRotation: doorRotation,
	}
	if err := m.parse(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *RoomModel) parse() error {
	rows := strings.Split(strings.TrimSpace(m.Heightmap), "|")
	if len(rows) == 0 || rows[0] == "" {
		return fmt.Errorf("empty heightmap")
	}
	width := len(rows[0])
	for y, row := range rows {
		if len(row) != width {
			return fmt.Errorf("heightmap row %d length %d, want %d", y, len(row), width)
		}
		for x := 0; x < len(row); x++ {
			c := row[x]
			if c != 'x' && (c < '0' || c > '9') {
				return fmt.Errorf("heightmap cell (%d,%d): invalid char %q", x, y, c)
			}
		}
	}
	if m.DoorX < 0 || m.DoorX >= width || m.DoorY < 0 || m.DoorY >= len(rows) {
		return fmt.Errorf("door tile (%d,%d) outside heightmap", m.DoorX, m.DoorY)
	}
	if rows[m.DoorY][m.DoorX] == 'x' {
		return fmt.Errorf("door tile (%d,%d) is blocked", m.DoorX, m.DoorY)
	}
	m.rows = rows
	return nil
}

// Width returns the heightmap width in tiles.
func (m *RoomModel) Width() int { return len(m.rows[0]) }

// Height returns the heightmap height in tiles.
func (m *RoomModel) Height() int { return len(m.rows) }

// TileBlocked reports whether the heightmap marks (x,y) as a hard
// blocked cell. Out-of-bounds coordinates are blocked.
func (m *RoomModel) TileBlocked(x, y int) bool {
	if x < 0 || y < 0 || y >= len(m.rows) || x >= len(m.rows[y]) {
		return true
	}
	return m.rows[y][x] == 'x'
}

// TileHeight returns the base height of (x,y), 0 for blocked cells.
func (m *RoomModel) TileHeight(x, y int) float64 {
	if m.TileBlocked(x, y) {
		return 0
	}
	return float64(m.rows[y][x] - '0')
}

// Get returns a model by name, or nil if not found.
func (t *ModelTable) Get(name string) *RoomModel {
	return t.models[name]
}

// Count returns the number of loaded models.
func (t *ModelTable) Count() int {
	return len(t.models)
}
