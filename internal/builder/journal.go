package builder

import "context"

// Journal records the outcome of every image of a build.
type Journal interface {
	// Begin records that an image started building and returns its job id.
	Begin(ctx context.Context, buildID, imageName, imageTag, baseImage string) (string, error)
	// End records the outcome of a job. A nil buildErr means success.
	End(ctx context.Context, jobID, manifestDir string, buildErr error) error
}

type noOpJournal struct{}

// NewNoOpJournal returns a Journal that records nothing.
func NewNoOpJournal() Journal {
	return noOpJournal{}
}

func (noOpJournal) Begin(context.Context, string, string, string, string) (string, error) {
	return "", nil
}

func (noOpJournal) End(context.Context, string, string, error) error {
	return nil
}
