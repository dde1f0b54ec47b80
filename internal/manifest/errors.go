package manifest

import "github.com/strata-db/strata/internal/base"

func errCorruptf(format string, args ...interface{}) error {
	return base.NewError(base.KindCorruption, "manifest: "+format, args...)
}
