package scope

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"schemadeps/internal/core"
)

func newJavaRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	_, err := r.AddBase("api")
	require.NoError(t, err)
	_, err = r.AddBase("implementation", "api")
	require.NoError(t, err)
	_, err = r.AddBase("testImplementation", "implementation")
	require.NoError(t, err)
	return r
}

func TestAddCompanion_BaseExtendsCompanion(t *testing.T) {
	r := newJavaRegistry(t)
	companion, err := r.AddCompanion(BaseKey("implementation"), "avroImplementation")
	require.NoError(t, err)
	require.Equal(t, Companion, companion.Kind)

	base, ok := r.Lookup(BaseKey("implementation"))
	require.True(t, ok)
	require.Equal(t, []Key{BaseKey("api"), companion}, base.Extends)
}

func TestAddCompanion_RejectsDuplicatesAndUnknownBase(t *testing.T) {
	r := newJavaRegistry(t)
	_, err := r.AddCompanion(BaseKey("implementation"), "avroImplementation")
	require.NoError(t, err)

	_, err = r.AddCompanion(BaseKey("api"), "avroImplementation")
	require.True(t, errors.Is(err, ErrDuplicateScope))

	_, err = r.AddCompanion(BaseKey("missing"), "avroMissing")
	require.True(t, errors.Is(err, ErrUnknownScope))

	_, err = r.AddCompanion(CompanionKey("avroImplementation"), "avroAvroImplementation")
	require.Error(t, err)
}

func TestPropagate_CompanionFollowsBaseInheritance(t *testing.T) {
	r := newJavaRegistry(t)
	// Created in the "wrong" order on purpose: the test companion exists before
	// the main one it has to extend.
	testAvro, err := r.AddCompanion(BaseKey("testImplementation"), "testAvroImplementation")
	require.NoError(t, err)
	avroImpl, err := r.AddCompanion(BaseKey("implementation"), "avroImplementation")
	require.NoError(t, err)
	avroAPI, err := r.AddCompanion(BaseKey("api"), "avroApi")
	require.NoError(t, err)

	pairs := map[Key]Key{
		BaseKey("testImplementation"): testAvro,
		BaseKey("implementation"):     avroImpl,
		BaseKey("api"):                avroAPI,
	}
	require.NoError(t, r.Propagate(pairs))

	s, _ := r.Lookup(testAvro)
	require.Equal(t, []Key{avroImpl}, s.Extends)
	s, _ = r.Lookup(avroImpl)
	require.Equal(t, []Key{avroAPI}, s.Extends)
	s, _ = r.Lookup(avroAPI)
	require.Empty(t, s.Extends)

	// Idempotent.
	require.NoError(t, r.Propagate(pairs))
	s, _ = r.Lookup(testAvro)
	require.Equal(t, []Key{avroImpl}, s.Extends)
}

func TestPropagate_SkipsParentsWithoutCompanion(t *testing.T) {
	r := newJavaRegistry(t)
	testAvro, err := r.AddCompanion(BaseKey("testImplementation"), "testAvroImplementation")
	require.NoError(t, err)

	require.NoError(t, r.Propagate(map[Key]Key{BaseKey("testImplementation"): testAvro}))
	s, _ := r.Lookup(testAvro)
	require.Empty(t, s.Extends)
}

func TestResolve_TransitiveOrderedUnique(t *testing.T) {
	r := newJavaRegistry(t)
	testAvro, err := r.AddCompanion(BaseKey("testImplementation"), "testAvroImplementation")
	require.NoError(t, err)
	avroImpl, err := r.AddCompanion(BaseKey("implementation"), "avroImplementation")
	require.NoError(t, err)
	require.NoError(t, r.Propagate(map[Key]Key{
		BaseKey("testImplementation"): testAvro,
		BaseKey("implementation"):     avroImpl,
	}))

	shared := core.NewArtifact("/libs/shared.jar")
	require.NoError(t, r.Declare(avroImpl, core.NewArtifact("/libs/error-handling.jar"), shared))
	require.NoError(t, r.Declare(testAvro, core.NewArtifact("/libs/test-schemas.jar"), shared))
	require.NoError(t, r.Declare(BaseKey("api"), core.NewArtifact("/libs/avro.jar")))

	got, err := r.Resolve(testAvro)
	require.NoError(t, err)
	want := []core.Artifact{
		core.NewArtifact("/libs/test-schemas.jar"),
		shared,
		core.NewArtifact("/libs/error-handling.jar"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("resolve mismatch (-want +got):\n%s", diff)
	}

	// Base resolution sees companion artifacts because the base extends it.
	base, err := r.Resolve(BaseKey("implementation"))
	require.NoError(t, err)
	require.Equal(t, []core.Artifact{
		core.NewArtifact("/libs/avro.jar"),
		core.NewArtifact("/libs/error-handling.jar"),
		shared,
	}, base)
}

func TestResolve_CycleAndUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.AddBase("a", "b")
	require.NoError(t, err)
	_, err = r.AddBase("b", "a")
	require.NoError(t, err)
	_, err = r.Resolve(BaseKey("a"))
	require.True(t, errors.Is(err, ErrExtendsCycle))

	_, err = r.AddBase("c", "missing")
	require.NoError(t, err)
	_, err = r.Resolve(BaseKey("c"))
	require.True(t, errors.Is(err, ErrUnknownScope))
}
