package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/jeanpaul/dosely/internal/meds"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s := New("/data/storage", WithFs(fs))
	require.NoError(t, s.EnsureStorage())
	return s, fs
}

func TestLoadUserList_CreatesEmptyDocument(t *testing.T) {
	s, fs := newTestStore(t)

	list := s.LoadUserList()
	assert.Empty(t, list)

	data, err := afero.ReadFile(fs, filepath.Join(s.Dir(), MedsFile))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestAppendRecord_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)

	records := []meds.MedicationRecord{
		{Name: "Paracetamol", Substance: "Paracetamol", DoseMg: meds.Dose(500)},
		{
			Name:                 "Amoxicilina",
			DoseMg:               meds.Dose(500.5),
			RequiresPrescription: true,
			Notes:                "después de comer",
			Reminder:             &meds.Reminder{Interval: 8, Unit: meds.UnitHours, Message: "Reminder: Amoxicilina", Repeat: true},
		},
	}

	for i, rec := range records {
		idx, err := s.AppendRecord(rec)
		require.NoError(t, err)
		assert.Equal(t, i, idx)

		list := s.LoadUserList()
		require.Len(t, list, i+1)
		assert.Equal(t, rec, list[len(list)-1])
	}
}

func TestUpdateRecord(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.AppendRecord(meds.MedicationRecord{Name: "Omeprazol"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateRecord(0, meds.MedicationRecord{Name: "Omeprazol", DoseMg: meds.Dose(20)}))
	rec, err := s.Record(0)
	require.NoError(t, err)
	assert.Equal(t, float64(20), *rec.DoseMg)

	err = s.UpdateRecord(3, meds.MedicationRecord{Name: "X"})
	assert.ErrorIs(t, err, ErrNoSuchIndex)
	err = s.UpdateRecord(-1, meds.MedicationRecord{Name: "X"})
	assert.ErrorIs(t, err, ErrNoSuchIndex)

	_, err = s.Record(5)
	assert.ErrorIs(t, err, ErrNoSuchIndex)
	assert.Len(t, s.LoadUserList(), 1)
}

func TestLoadUserList_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want int
	}{
		{"not json", `{{{`, 0},
		{"object root", `{"nombre":"A"}`, 0},
		{"array of scalars", `[1,2,3]`, 0},
		{"bad element type is skipped", `[{"nombre":"A"},{"nombre":5},{"nombre":"C"}]`, 2},
		{"missing keys default", `[{"nombre":"A"},{}]`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, fs := newTestStore(t)
			require.NoError(t, afero.WriteFile(fs, filepath.Join(s.Dir(), MedsFile), []byte(tt.doc), 0644))
			assert.Len(t, s.LoadUserList(), tt.want)
		})
	}
}

func TestLoadCatalog_SeedsDefaults(t *testing.T) {
	s, fs := newTestStore(t)

	cat := s.LoadCatalog()
	assert.Equal(t, meds.DefaultCatalog(), cat)

	exists, err := afero.Exists(fs, filepath.Join(s.Dir(), CatalogFile))
	require.NoError(t, err)
	assert.True(t, exists)

	// A second read comes from disk and must match.
	assert.Equal(t, cat, s.LoadCatalog())
}

func TestLoadCatalog_KeepsExistingFile(t *testing.T) {
	s, fs := newTestStore(t)
	doc := `[{"nombre":"Diclofenaco","sustancia":"Diclofenaco sódico","mg":75,"requiere_receta":true}]`
	require.NoError(t, afero.WriteFile(fs, filepath.Join(s.Dir(), CatalogFile), []byte(doc), 0644))

	cat := s.LoadCatalog()
	require.Len(t, cat, 1)
	assert.Equal(t, "Diclofenaco", cat[0].Name)
}

func TestSearchCatalog(t *testing.T) {
	s, _ := newTestStore(t)

	t.Run("blank query returns everything in order", func(t *testing.T) {
		assert.Equal(t, s.LoadCatalog(), s.SearchCatalog(""))
		assert.Equal(t, s.LoadCatalog(), s.SearchCatalog("   "))
	})

	t.Run("case insensitive", func(t *testing.T) {
		lower := s.SearchCatalog("paracetamol")
		upper := s.SearchCatalog("PARACETAMOL")
		require.Len(t, lower, 1)
		assert.Equal(t, lower, upper)
	})

	t.Run("prefix of name", func(t *testing.T) {
		got := s.SearchCatalog("ibupro")
		require.Len(t, got, 1)
		assert.Equal(t, meds.CatalogEntry{Name: "Ibuprofeno", Substance: "Ibuprofeno", DoseMg: meds.Dose(400)}, got[0])
	})

	t.Run("matches substance", func(t *testing.T) {
		got := s.SearchCatalog("aspirina")
		require.Len(t, got, 1)
		assert.Equal(t, "Ácido acetilsalicílico", got[0].Name)
	})

	t.Run("accented letters fold", func(t *testing.T) {
		got := s.SearchCatalog("LOSARTÁN")
		require.Len(t, got, 1)
		assert.Equal(t, "Losartán", got[0].Name)
	})

	t.Run("several matches keep catalog order", func(t *testing.T) {
		got := s.SearchCatalog("ina")
		names := make([]string, len(got))
		for i, e := range got {
			names[i] = e.Name
		}
		assert.Equal(t, []string{"Amoxicilina", "Metformina", "Atorvastatina", "Cetirizina", "Ácido acetilsalicílico"}, names)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, s.SearchCatalog("zzz"))
	})
}

func TestReplaceCatalog(t *testing.T) {
	s, _ := newTestStore(t)
	entries := []meds.CatalogEntry{{Name: "Naproxeno", Substance: "Naproxeno", DoseMg: meds.Dose(250)}}
	require.NoError(t, s.ReplaceCatalog(entries))
	assert.Equal(t, entries, s.LoadCatalog())
}

func TestWriteFailureIsStorageError(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	s := New("/ro", WithFs(fs))

	_, err := s.AppendRecord(meds.MedicationRecord{Name: "X"})
	require.Error(t, err)
	var se *StorageError
	assert.True(t, errors.As(err, &se))
}

func TestWrite_LeavesNoTempFiles(t *testing.T) {
	s, fs := newTestStore(t)
	_, err := s.AppendRecord(meds.MedicationRecord{Name: "A"})
	require.NoError(t, err)

	entries, err := afero.ReadDir(fs, s.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}
