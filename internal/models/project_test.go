package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecklist_AllCompleted(t *testing.T) {
	assert.True(t, Checklist{}.AllCompleted())
	assert.True(t, Checklist(nil).AllCompleted())

	partial := Checklist{
		{Text: "Подключить API", IsCompleted: true},
		{Text: "Настроить вебхуки"},
	}
	assert.False(t, partial.AllCompleted())

	done := Checklist{
		{Text: "Подключить API", IsCompleted: true},
		{Text: "Настроить вебхуки", IsCompleted: true},
	}
	assert.True(t, done.AllCompleted())
}

func TestChecklist_ScanValue(t *testing.T) {
	src := Checklist{{Text: "Смоук-тесты", IsCompleted: true}}

	raw, err := src.Value()
	assert.NoError(t, err)

	var dst Checklist
	assert.NoError(t, dst.Scan(raw))
	assert.Equal(t, src, dst)

	var empty Checklist
	assert.NoError(t, empty.Scan(nil))
	assert.Empty(t, empty)

	assert.Error(t, dst.Scan(42))
}

func TestChecklist_ValueNil(t *testing.T) {
	var c Checklist
	v, err := c.Value()
	assert.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestContract_IsTerminal(t *testing.T) {
	c := &Contract{Status: ContractStatusActive}
	assert.False(t, c.IsTerminal())

	for _, status := range []string{ContractStatusCompleted, ContractStatusTerminated, ContractStatusCancelled} {
		c.Status = status
		assert.True(t, c.IsTerminal(), status)
	}

	c.Status = ContractStatusDisputed
	assert.False(t, c.IsTerminal())
}
