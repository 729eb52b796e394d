package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDashboardName(t *testing.T) {
	assert.Equal(t, "(Untitled)", DashboardName(""))
	assert.Equal(t, "Perf", DashboardName("Perf"))
}

func TestDashboard_IsOwnedBy(t *testing.T) {
	d := &Dashboard{OwnerID: "auth0|alice"}

	assert.True(t, d.IsOwnedBy("auth0|alice"))
	assert.False(t, d.IsOwnedBy("auth0|bob"))
	assert.False(t, d.IsOwnedBy(""))
}
