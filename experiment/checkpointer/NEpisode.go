package checkpointer

import "fmt"

// nEpisode implements checkpointing every N episodes
type nEpisode struct {
	interval int
	object   Saver // Object to save

	// filename returns the path of the file to save the object in.
	// FilenameEnumerator gives each checkpoint its own numbered file
	// (model_ep1.gob, model_ep2.gob, ...).
	filename func() string
}

// NewNEpisode returns a checkpointer that checkpoints every n episodes
func NewNEpisode(n int, object Saver, filename func() string) (Checkpointer,
	error) {
	if n < 1 {
		return nil, fmt.Errorf("newNEpisode: interval must be positive, "+
			"got %v", n)
	}
	return &nEpisode{
		interval: n,
		object:   object,
		filename: filename,
	}, nil
}

// Checkpoint checkpoints the tracked object by calling its Save() method
// if episode is a multiple of the interval
func (n *nEpisode) Checkpoint(episode int) (string, error) {
	if episode%n.interval != 0 {
		return "", nil
	}
	path := n.filename()
	if err := n.object.Save(path); err != nil {
		return "", fmt.Errorf("checkpoint: %w", err)
	}
	return path, nil
}
