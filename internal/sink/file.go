package sink

import (
	"fmt"
	"os"

	"github.com/kaans/mqtli/internal/config"
	"github.com/kaans/mqtli/internal/payload"
)

// writeFile opens the target file (honoring overwrite vs append), then
// writes the optional prepend, the payload body, and the optional append
// (defaulting to "\n" when unset), per spec.md 4.9.
func writeFile(target config.OutputTargetFile, converted payload.Format) error {
	flags := os.O_CREATE | os.O_WRONLY
	if target.Overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}

	f, err := os.OpenFile(target.Path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCouldNotOpenTargetFile, err)
	}
	defer f.Close()

	if target.Prepend != nil {
		if _, err := f.WriteString(*target.Prepend); err != nil {
			return fmt.Errorf("%w: %v", ErrWhileWritingToFile, err)
		}
	}

	body, err := converted.Bytes()
	if err != nil {
		return err
	}
	if _, err := f.Write(body); err != nil {
		return fmt.Errorf("%w: %v", ErrWhileWritingToFile, err)
	}

	appendStr := "\n"
	if target.Append != nil {
		appendStr = *target.Append
	}
	if _, err := f.WriteString(appendStr); err != nil {
		return fmt.Errorf("%w: %v", ErrWhileWritingToFile, err)
	}

	return nil
}
