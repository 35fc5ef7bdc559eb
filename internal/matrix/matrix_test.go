package matrix

import (
	"testing"

	"github.com/specialistvlad/gridci/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jobWithMatrix(name string, m *config.Matrix) *config.JobDefinition {
	return &config.JobDefinition{Name: name, Matrix: m}
}

func TestExpand_NoMatrix(t *testing.T) {
	assignments, err := Expand(jobWithMatrix("build", nil))
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.True(t, assignments[0].Empty())
	assert.Equal(t, "", assignments[0].String())
}

func TestExpand_CrossProductOrder(t *testing.T) {
	m := &config.Matrix{
		Axes: []config.Axis{
			{Name: "os", Values: []string{"linux", "macos"}},
			{Name: "version", Values: []string{"3.11", "3.12"}},
		},
	}

	assignments, err := Expand(jobWithMatrix("test", m))
	require.NoError(t, err)
	require.Len(t, assignments, 4)

	var got []string
	for _, a := range assignments {
		got = append(got, a.String())
	}
	assert.Equal(t, []string{
		"os=linux,version=3.11",
		"os=linux,version=3.12",
		"os=macos,version=3.11",
		"os=macos,version=3.12",
	}, got)
}

func TestExpand_Deterministic(t *testing.T) {
	m := &config.Matrix{
		Axes: []config.Axis{
			{Name: "a", Values: []string{"1", "2", "3"}},
			{Name: "b", Values: []string{"x", "y"}},
		},
	}
	job := jobWithMatrix("j", m)

	first, err := Expand(job)
	require.NoError(t, err)
	second, err := Expand(job)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].String(), second[i].String())
		assert.Equal(t, first[i].Map(), second[i].Map())
	}
}

func TestExpand_Exclude(t *testing.T) {
	m := &config.Matrix{
		Axes: []config.Axis{
			{Name: "os", Values: []string{"linux", "macos"}},
			{Name: "version", Values: []string{"3.11", "3.12"}},
		},
		Exclude: []map[string]string{
			{"os": "macos", "version": "3.11"},
		},
	}

	assignments, err := Expand(jobWithMatrix("test", m))
	require.NoError(t, err)
	require.Len(t, assignments, 3)
	for _, a := range assignments {
		assert.NotEqual(t, "os=macos,version=3.11", a.String())
	}
}

func TestExpand_PartialExcludeDropsAllMatches(t *testing.T) {
	m := &config.Matrix{
		Axes: []config.Axis{
			{Name: "os", Values: []string{"linux", "macos"}},
			{Name: "version", Values: []string{"3.11", "3.12"}},
		},
		Exclude: []map[string]string{
			{"os": "macos"},
		},
	}

	assignments, err := Expand(jobWithMatrix("test", m))
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	for _, a := range assignments {
		os, _ := a.Get("os")
		assert.Equal(t, "linux", os)
	}
}

func TestExpand_EmptyMatrixError(t *testing.T) {
	m := &config.Matrix{
		Axes: []config.Axis{
			{Name: "os", Values: []string{"linux"}},
		},
		Exclude: []map[string]string{
			{"os": "linux"},
		},
	}

	_, err := Expand(jobWithMatrix("test", m))
	require.Error(t, err)

	var emptyErr *EmptyMatrixError
	require.ErrorAs(t, err, &emptyErr)
	assert.Equal(t, "test", emptyErr.Job)
}

func TestAssignment_Object(t *testing.T) {
	m := &config.Matrix{
		Axes: []config.Axis{
			{Name: "os", Values: []string{"linux"}},
		},
	}
	assignments, err := Expand(jobWithMatrix("test", m))
	require.NoError(t, err)

	obj := assignments[0].Object()
	require.True(t, obj.Type().IsObjectType())
	assert.Equal(t, "linux", obj.GetAttr("os").AsString())
}

func TestAssignment_MapIsACopy(t *testing.T) {
	m := &config.Matrix{
		Axes: []config.Axis{{Name: "os", Values: []string{"linux"}}},
	}
	assignments, err := Expand(jobWithMatrix("test", m))
	require.NoError(t, err)

	first := assignments[0].Map()
	first["os"] = "mutated"

	fresh, _ := assignments[0].Get("os")
	assert.Equal(t, "linux", fresh)
}
