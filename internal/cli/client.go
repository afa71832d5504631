package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/stranddb/strand/internal/daemon"
)

// httpClient is a thin wrapper over strand's HTTP embedding API, used by
// CLI commands when --addr points at a running daemon.
type httpClient struct {
	base string
}

func newHTTPClient(addr string) *httpClient {
	return &httpClient{base: "http://" + addr}
}

func (c *httpClient) installProgram(src []byte) error {
	resp, err := http.Post(c.base+"/v1/program", "text/plain", bytes.NewReader(src))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (c *httpClient) fact(table string, values []interface{}, retract bool) error {
	body, err := json.Marshal(values)
	if err != nil {
		return err
	}
	method := http.MethodPost
	if retract {
		method = http.MethodDelete
	}
	req, err := http.NewRequest(method, c.base+"/v1/facts/"+table, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (c *httpClient) dumpTable(table string) (map[string]interface{}, error) {
	resp, err := http.Get(c.base + "/v1/tables/" + table)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 300 {
		var body map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("strand daemon returned %s: %v", resp.Status, body)
	}
	return nil
}

// embeddedEngine is the alternative to httpClient: a throwaway Daemon
// constructed from local config, for one-shot commands run without
// --addr. It is closed by the caller once the command completes.
func embeddedEngine() (*daemon.Daemon, error) {
	return daemon.New()
}
