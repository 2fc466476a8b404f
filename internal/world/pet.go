package world

// PetRecord is the persisted half of a pet: loaded with its room and
// written back as the pet wanders. The live half is an Entity with
// Kind EntityPet.
type PetRecord struct {
	ID         int64
	Name       string
	OwnerID    int64
	NestItemID int64
	X          int
	Y          int
}
