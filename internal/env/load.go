package env

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

// LoadEnv loads the given dotenv files (".env" when none are given) into the
// process environment without overriding variables that are already set.
// A missing file is not an error; it reports loaded=false so the caller can
// note that variables are expected to be set directly.
func LoadEnv(files ...string) (loaded bool, err error) {
	if err := godotenv.Load(files...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
