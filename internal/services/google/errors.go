package google

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/julianstephens/trainsync/internal/errors"
)

// notFoundHints are matched against error text when an error carries no
// HTTP status, such as errors surfaced through proxies or older clients.
var notFoundHints = []string{"notFound", "404", "Not Found", "does not exist"}

// classify tags an API error as not found or transient.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(errors.KindRemoteTransient, op, err)
	}

	var gerr *googleapi.Error
	if stderrors.As(err, &gerr) {
		if gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone {
			return errors.Wrap(errors.KindRemoteNotFound, op, err)
		}
		return errors.Wrap(errors.KindRemoteTransient, op, err)
	}

	msg := err.Error()
	for _, hint := range notFoundHints {
		if strings.Contains(msg, hint) {
			return errors.Wrap(errors.KindRemoteNotFound, op, err)
		}
	}
	return errors.Wrap(errors.KindRemoteTransient, op, err)
}
