package utils

import "github.com/sirupsen/logrus"

// PanicIfNeeded panics with err so the recovery middleware can turn it into
// a response.
func PanicIfNeeded(err any) {
	if err != nil {
		logrus.Debugf("[REST] Aborting request: %v", err)
		panic(err)
	}
}
