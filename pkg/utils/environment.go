package utils

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// LoadConfig reads .env files from dir into the process environment and
// lets viper pick every variable up. Missing files are not an error.
func LoadConfig(dir string, files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, name := range files {
		path := name
		if dir != "" && dir != "." {
			path = dir + string(os.PathSeparator) + name
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return err
		}
		logrus.Debugf("[CONFIG] Loaded %s", path)
	}
	viper.AutomaticEnv()
	return nil
}
