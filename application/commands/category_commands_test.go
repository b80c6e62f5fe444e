package commands

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog/application/ports"
	pkgerrors "catalog/pkg/errors"
)

func ptr[T any](v T) *T { return &v }

func TestCommandValidation(t *testing.T) {
	tests := []struct {
		name string
		cmd  interface{ Validate() error }
		code string
	}{
		{"create ok", CreateCategoryCommand{Name: "Roses"}, ""},
		{"create without name", CreateCategoryCommand{}, pkgerrors.CodeInvalidCommand},
		{"create long name", CreateCategoryCommand{Name: strings.Repeat("a", 201)}, pkgerrors.CodeInvalidCommand},
		{"create bad parent", CreateCategoryCommand{Name: "Roses", ParentID: ptr(int64(0))}, pkgerrors.CodeInvalidCommand},
		{"update ok", UpdateCategoryCommand{CategoryID: 1, Name: ptr("Roses"), ExpectedVersion: "1"}, ""},
		{"update missing version", UpdateCategoryCommand{CategoryID: 1}, pkgerrors.CodeInvalidVersion},
		{"update negative order", UpdateCategoryCommand{CategoryID: 1, DisplayOrder: ptr(-1), ExpectedVersion: "1"}, pkgerrors.CodeInvalidCommand},
		{"archive bad id", ArchiveCategoryCommand{ExpectedVersion: "1"}, pkgerrors.CodeInvalidCategoryID},
		{"restore ok", RestoreCategoryCommand{CategoryID: 2, ExpectedVersion: "3"}, ""},
		{"reparent to root", ReparentCategoryCommand{CategoryID: 2, ExpectedVersion: "3"}, ""},
		{"reparent to self", ReparentCategoryCommand{CategoryID: 2, NewParentID: ptr(int64(2)), ExpectedVersion: "3"}, pkgerrors.CodeSelfParenting},
		{"reparent bad parent", ReparentCategoryCommand{CategoryID: 2, NewParentID: ptr(int64(-4)), ExpectedVersion: "3"}, pkgerrors.CodeInvalidCategoryID},
		{"reslug blank", ReslugCategoryCommand{CategoryID: 2, NewSlug: "  ", ExpectedVersion: "3"}, pkgerrors.CodeEmptySlug},
		{"delete blank version", DeleteCategoryCommand{CategoryID: 2, ExpectedVersion: " "}, pkgerrors.CodeInvalidVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.code == "" {
				require.NoError(t, err)
				return
			}
			assert.True(t, pkgerrors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestCreateCategoryCommand_FieldDetails(t *testing.T) {
	err := CreateCategoryCommand{}.Validate()
	fields := pkgerrors.GetDomainError(err).Details["fields"].(map[string]string)
	assert.Equal(t, "name is required", fields["name"])
}

func TestCommandTxPolicies(t *testing.T) {
	structural := []ports.PolicyCarrier{
		ArchiveCategoryCommand{},
		RestoreCategoryCommand{},
		ReparentCategoryCommand{},
		ReslugCategoryCommand{},
		DeleteCategoryCommand{},
	}
	for _, c := range structural {
		p := c.TxPolicy()
		assert.Equal(t, ports.IsolationSerializable, p.Isolation, "%T", c)
		assert.Equal(t, ports.StructuralLockTimeout, p.LockTimeout, "%T", c)
		assert.Equal(t, ports.StructuralStatementTimeout, p.StatementTimeout, "%T", c)
		assert.Equal(t, 3, p.Attempts(), "%T", c)
	}

	for _, c := range []ports.PolicyCarrier{CreateCategoryCommand{}, UpdateCategoryCommand{}} {
		p := c.TxPolicy()
		assert.Equal(t, ports.IsolationReadCommitted, p.Isolation, "%T", c)
		assert.Zero(t, p.LockTimeout, "%T", c)
		assert.Equal(t, 1, p.Attempts(), "%T", c)
	}

	assert.Equal(t, 1, ports.TxPolicy{}.Attempts())
}
