package event

import "github.com/l1jgo/simcore/internal/core/ecs"

// World notifications. These are the only inputs that change chunk
// membership besides the scheduler's tier decisions.

type EntitySpawned struct {
	ID ecs.EntityID
}

type EntityDespawned struct {
	ID ecs.EntityID
}

type EntityMoved struct {
	ID    ecs.EntityID
	FromX float64
	FromY float64
	ToX   float64
	ToY   float64
}
