package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

// newClient builds a resty client pointed at the service, carrying the API
// key of the invocation.
func newClient() *resty.Client {
	return resty.New().
		SetBaseURL(apiFlag + "/api/v1").
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", keyFlag).
		SetTimeout(15 * time.Second)
}

// call executes the request and prints the response body; non-2xx statuses
// become errors so the shell exit code is useful in scripts.
func call(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	if len(resp.Body()) > 0 {
		_, _ = fmt.Fprintln(os.Stdout, resp.String())
	}
	return nil
}
