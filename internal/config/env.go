// internal/config/env.go
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/ratio1/r1nodectl/internal/constants"
)

// ReadEnvFile loads the key/value pairs of a .env file. A missing file is
// an empty map, not an error.
func ReadEnvFile(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, errors.Wrapf(err, "read env file %s", path)
	}
	return env, nil
}

// WriteEnvFile replaces the .env file with the given pairs, creating the
// directory as needed. godotenv writes keys sorted, so the file diffs
// cleanly under version control.
func WriteEnvFile(path string, env map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), constants.DefaultDirMode); err != nil {
		return errors.Wrap(err, "create env file directory")
	}
	return errors.Wrapf(godotenv.Write(env, path), "write env file %s", path)
}

// SetEnvValue updates one key in the .env file, keeping the others.
func SetEnvValue(path, key, value string) error {
	env, err := ReadEnvFile(path)
	if err != nil {
		return err
	}
	env[key] = value
	return WriteEnvFile(path, env)
}

// UnsetEnvValue removes one key from the .env file. Removing an absent key
// is a no-op.
func UnsetEnvValue(path, key string) error {
	env, err := ReadEnvFile(path)
	if err != nil {
		return err
	}
	if _, ok := env[key]; !ok {
		return nil
	}
	delete(env, key)
	return WriteEnvFile(path, env)
}
