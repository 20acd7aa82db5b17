// Package checkpointer implements periodic saving of agents during
// training
package checkpointer

// Saver is an object that can be saved to a file
type Saver interface {
	Save(path string) error
}

// Checkpointer checkpoints/saves objects at the end of episodes
type Checkpointer interface {
	// Checkpoint is called after each completed episode, counted from 1,
	// and returns the path written or "" if nothing was saved
	Checkpoint(episode int) (string, error)
}
