package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	cerrors "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	kperrors "konutpricer/pkg/errors"
)

const sampleCSV = `fiyat,ilce,mahalle,metrekare,oda,yas,kat
1250000,Kadıköy,Moda,95,3,12,4
2400000,Üsküdar,Kuzguncuk,120,4,5,2
980000,Kadıköy,Fikirtepe,70
`

func TestReadCSV(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "1250000", rows[0].Price)
	assert.Equal(t, "Kadıköy", rows[0].District)
	assert.Equal(t, "Moda", rows[0].Neighborhood)
	assert.Equal(t, "4", rows[0].Floor)

	// Short rows pad missing cells with empty strings.
	assert.Equal(t, "70", rows[2].Area)
	assert.Equal(t, "", rows[2].Rooms)
	assert.Equal(t, "", rows[2].Floor)
}

func TestReadCSVNoDataRows(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("fiyat,ilce,mahalle,metrekare,oda,yas,kat\n"))
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, kperrors.ErrDataUnavailable))
}

func TestLoadCSVFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	rows, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, kperrors.ErrDataUnavailable))
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"fiyat", "ilce", "mahalle", "metrekare", "oda", "yas", "kat"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{1250000, "Kadıköy", "Moda", 95, 3, 12, 4}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{2400000, "Üsküdar", "Kuzguncuk", 120, 4, 5, 2}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	rows, err := Load(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1250000", rows[0].Price)
	assert.Equal(t, "Üsküdar", rows[1].District)
	assert.Equal(t, "2", rows[1].Floor)
}
