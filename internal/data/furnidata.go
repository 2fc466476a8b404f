package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FurniDefinition is the static template for one furniture sprite,
// loaded from furni_list.yaml. Instances reference their definition by
// pointer; definitions are read-only after load.
type FurniDefinition struct {
	ID          int     `yaml:"id"`
	Sprite      string  `yaml:"sprite"`
	Name        string  `yaml:"name"`
	Interaction string  `yaml:"interaction"` // interaction kind, "" = default
	Length      int     `yaml:"length"`      // footprint along Y at rotation 0
	Width       int     `yaml:"width"`       // footprint along X at rotation 0
	TopHeight   float64 `yaml:"top_height"`  // surface height above the item's Z
	CanStack    bool    `yaml:"can_stack"`
	CanSit      bool    `yaml:"can_sit"`
	Walkable    bool    `yaml:"walkable"`
	WallItem    bool    `yaml:"wall_item"`
	Charges     int     `yaml:"charges"`     // dispenser/water bowl capacity, 0 = n/a
	Cooldown    int     `yaml:"cooldown"`    // ticks an item stays busy after use, 0 = none
}

// Interaction kinds recognized by the built-in item behaviours. Any
// other value falls back to the default (inert) behaviour.
const (
	InteractionDefault   = ""
	InteractionSeat      = "seat"
	InteractionGate      = "gate"
	InteractionDispenser = "dispenser"
	InteractionPetNest   = "pet_nest"
	InteractionWaterBowl = "pet_water_bowl"
)

// IsPassable reports whether an entity may step onto a tile whose topmost
// item has this definition. Seats are passable so entities can walk
// onto them to sit.
func (d *FurniDefinition) IsPassable() bool {
	return d.Walkable || d.CanSit
}

type FurniTable struct {
	bySprite map[string]*FurniDefinition
	byID     map[int]*FurniDefinition
}

type furniListFile struct {
	Furni []FurniDefinition `yaml:"furni"`
}

// LoadFurniTable loads furniture definitions from YAML.
func LoadFurniTable(path string) (*FurniTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read furni list %s: %w", path, err)
	}
	var file furniListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse furni list: %w", err)
	}

	t := &FurniTable{
		bySprite: make(map[string]*FurniDefinition, len(file.Furni)),
		byID:     make(map[int]*FurniDefinition, len(file.Furni)),
	}
	for i := range file.Furni {
		def := &file.Furni[i]
		if def.Length < 1 {
			def.Length = 1
		}
		if def.Width < 1 {
			def.Width = 1
		}
		t.bySprite[def.Sprite] = def
		t.byID[def.ID] = def
	}
	return t, nil
}

// Get returns a definition by numeric ID, or nil if unknown.
func (t *FurniTable) Get(id int) *FurniDefinition {
	return t.byID[id]
}

// GetBySprite returns a definition by sprite name, or nil if unknown.
func (t *FurniTable) GetBySprite(sprite string) *FurniDefinition {
	return t.bySprite[sprite]
}

// Count returns the number of loaded definitions.
func (t *FurniTable) Count() int {
	return len(t.byID)
}
