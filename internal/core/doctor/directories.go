package doctor

import (
	"context"
	"fmt"
	"os"
)

// DirectoriesCheck verifies that the worker's state directories are usable.
// Missing directories are created on first use, so they only warn.
type DirectoriesCheck struct {
	dirs map[string]string
	keys []string
}

// NewDirectoriesCheck checks each label -> path pair in the given order.
func NewDirectoriesCheck(pairs ...[2]string) *DirectoriesCheck {
	c := &DirectoriesCheck{dirs: make(map[string]string, len(pairs))}
	for _, p := range pairs {
		c.keys = append(c.keys, p[0])
		c.dirs[p[0]] = p[1]
	}
	return c
}

func (c *DirectoriesCheck) Name() string {
	return "Directories"
}

func (c *DirectoriesCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	for _, label := range c.keys {
		dir := c.dirs[label]
		info, err := os.Stat(dir)
		switch {
		case os.IsNotExist(err):
			result.Items = append(result.Items, CheckItem{
				Label:  label,
				Status: StatusWarn,
				Detail: dir + " does not exist yet",
			})
		case err != nil:
			result.Items = append(result.Items, CheckItem{
				Label:  label,
				Status: StatusFail,
				Detail: fmt.Sprintf("inaccessible: %v", err),
			})
		case !info.IsDir():
			result.Items = append(result.Items, CheckItem{
				Label:  label,
				Status: StatusFail,
				Detail: dir + " is not a directory",
			})
		default:
			result.Items = append(result.Items, CheckItem{
				Label:  label,
				Status: StatusPass,
				Detail: dir,
			})
		}
	}

	return result
}
