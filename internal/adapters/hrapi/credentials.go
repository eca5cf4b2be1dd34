package hrapi

import (
	"context"
	"fmt"
	"strings"

	"attendance.tracker/internal/core/model"
)

// Credentials identify the employee on every HR call.
type Credentials struct {
	EmployeeID  string
	CompanyCode string
}

// Cookie renders the credentials the way the HR backend expects them.
func (c Credentials) Cookie() string {
	return fmt.Sprintf("employee_id=%s; companyCode=%s", c.EmployeeID, c.CompanyCode)
}

func (c Credentials) valid() bool {
	return strings.TrimSpace(c.EmployeeID) != "" && strings.TrimSpace(c.CompanyCode) != ""
}

// CredentialProvider supplies the credentials of the signed-in employee.
type CredentialProvider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticCredentials always returns the same credentials.
type StaticCredentials Credentials

func (s StaticCredentials) Credentials(context.Context) (Credentials, error) {
	c := Credentials(s)
	if !c.valid() {
		return Credentials{}, model.ErrMissingCredentials
	}
	return c, nil
}
