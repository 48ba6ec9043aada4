package configs

import (
	"os"

	"github.com/pkg/errors"
	"github.com/ppphp/configparser"
)

// ReadConfigs feeds each readable file of paths to parser in order. Files
// that cannot be opened are skipped.
func ReadConfigs(parser configparser.ConfigParser, paths []string) error {
	for _, p := range paths {
		if err := readConfig(parser, p); err != nil {
			return err
		}
	}
	return nil
}

func readConfig(parser configparser.ConfigParser, p string) error {
	f, err := os.Open(p)
	if err != nil {
		return nil
	}
	defer f.Close()
	return errors.Wrapf(parser.ReadFile(f, p), "couldn't parse %s", p)
}
