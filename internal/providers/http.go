package providers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"
)

// hclogAdapter forwards resty's log lines to an hclog.Logger.
type hclogAdapter struct {
	logger hclog.Logger
}

func (a *hclogAdapter) Errorf(format string, v ...interface{}) {
	a.logger.Error(fmt.Sprintf(format, v...))
}

func (a *hclogAdapter) Warnf(format string, v ...interface{}) {
	a.logger.Warn(fmt.Sprintf(format, v...))
}

func (a *hclogAdapter) Debugf(format string, v ...interface{}) {
	a.logger.Debug(fmt.Sprintf(format, v...))
}

// newRestyClient returns a client that makes exactly one attempt per call.
func newRestyClient(opts Options) *resty.Client {
	client := resty.New()
	client.SetLogger(&hclogAdapter{logger: opts.logger()})
	client.
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json")
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	return client
}

// decodeResponse checks the status and unmarshals a successful body into v.
func decodeResponse(resp *resty.Response, v any) error {
	if resp.StatusCode() != http.StatusOK {
		return statusError(resp.StatusCode(), resp.String())
	}
	if err := json.Unmarshal(resp.Body(), v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
