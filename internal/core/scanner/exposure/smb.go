package exposure

import (
	"context"
	"fmt"

	"github.com/stacktitan/smb/smb"
)

// SMBChecker 匿名空会话
type SMBChecker struct{}

func NewSMBChecker() *SMBChecker {
	return &SMBChecker{}
}

func (c *SMBChecker) Name() string {
	return "smb"
}

func (c *SMBChecker) Ports() []int {
	return []int{445}
}

func (c *SMBChecker) Check(ctx context.Context, host string, port int) (bool, string, error) {
	options := smb.Options{
		Host:        host,
		Port:        port,
		User:        "",
		Password:    "",
		Domain:      "",
		Workstation: "",
	}

	type result struct {
		authenticated bool
		err           error
	}
	resultChan := make(chan result, 1)

	// stacktitan/smb 不支持 context，放到 goroutine 中配合 select 控制超时
	go func() {
		session, err := smb.NewSession(options, false)
		if err != nil {
			resultChan <- result{false, err}
			return
		}
		defer session.Close()
		resultChan <- result{session.IsAuthenticated, nil}
	}()

	select {
	case <-ctx.Done():
		return false, "", fmt.Errorf("%w: %v", ErrConnectionFailed, ctx.Err())
	case res := <-resultChan:
		if res.err != nil {
			// STATUS_LOGON_FAILURE / STATUS_ACCESS_DENIED
			if containsAny(res.err.Error(), "logon_failure", "access_denied", "login failed") {
				return false, "null session rejected", nil
			}
			return false, "", classify(res.err)
		}
		if res.authenticated {
			return true, "anonymous null session accepted", nil
		}
		return false, "null session rejected", nil
	}
}
