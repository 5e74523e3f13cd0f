package eventstore

import (
	"git.home.luguber.info/inful/docpublish/internal/foundation/errors"
)

func storeError(message string, cause error) error {
	return errors.HistoryError(message).WithCause(cause).Build()
}
