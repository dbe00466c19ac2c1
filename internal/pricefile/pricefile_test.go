package pricefile

import (
	"testing"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
)

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		Name     string
		Input    string
		Expected string
		Err      error
	}{
		{Name: "plain integer", Input: "1000", Expected: "1000"},
		{Name: "decimal dot", Input: "1234.56", Expected: "1234.56"},
		{Name: "decimal comma", Input: "20,50", Expected: "20.5"},
		{Name: "thousands comma", Input: "20,000", Expected: "20000"},
		{Name: "european", Input: "1.234,50", Expected: "1234.5"},
		{Name: "american", Input: "1,234.50", Expected: "1234.5"},
		{Name: "repeated dots", Input: "1.234.567", Expected: "1234567"},
		{Name: "long dot tail", Input: "1.2345", Expected: "12345"},
		{Name: "spaces and currency", Input: "1 500,00 ₽", Expected: "1500"},
		{Name: "non breaking space", Input: "2 990 руб.", Expected: "2990"},
		{Name: "dollar", Input: "$99.90", Expected: "99.9"},
		{Name: "not a number", Input: "abc", Err: ErrNotANumber},
		{Name: "empty", Input: "  ", Err: ErrEmptyPrice},
		{Name: "negative", Input: "-15", Err: ErrNegativePrice},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			d, err := ParsePrice(tc.Input)
			if tc.Err != nil {
				assert.ErrorIs(t, err, tc.Err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.Expected, d.String())
		})
	}
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ';', DetectDelimiter("\n\nsku;price;sale\nA;1,5;1"))
	assert.Equal(t, '\t', DetectDelimiter("sku\tprice\n"))
	assert.Equal(t, ',', DetectDelimiter("sku,price\n"))
	assert.Equal(t, ';', DetectDelimiter("a;b,c\n"))
	assert.Equal(t, ',', DetectDelimiter("single-column"))
}

func TestDecodeText(t *testing.T) {
	const text = "Артикул;Цена\nКабель медный;1500\n"

	testCases := []struct {
		Name     string
		Encode   func(string) (string, error)
		Encoding string
	}{
		{Name: "utf-8", Encode: func(s string) (string, error) { return s, nil }, Encoding: "utf-8"},
		{Name: "utf-8 bom", Encode: func(s string) (string, error) { return "\xef\xbb\xbf" + s, nil }, Encoding: "utf-8"},
		{Name: "windows-1251", Encode: charmap.Windows1251.NewEncoder().String, Encoding: "windows-1251"},
		{Name: "koi8-r", Encode: charmap.KOI8R.NewEncoder().String, Encoding: "koi8-r"},
		{Name: "cp866", Encode: charmap.CodePage866.NewEncoder().String, Encoding: "cp866"},
		{Name: "utf-16le bom", Encode: xunicode.UTF16(xunicode.LittleEndian, xunicode.UseBOM).NewEncoder().String, Encoding: "utf-16le"},
		{Name: "utf-16be bom", Encode: xunicode.UTF16(xunicode.BigEndian, xunicode.UseBOM).NewEncoder().String, Encoding: "utf-16be"},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			encoded, err := tc.Encode(text)
			require.NoError(t, err)

			decoded, enc := DecodeText([]byte(encoded))
			assert.Equal(t, tc.Encoding, enc)
			assert.Equal(t, text, decoded)
		})
	}
}

func TestDetectFormat(t *testing.T) {
	f, err := DetectFormat("prices.CSV", "")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	f, err = DetectFormat("prices.xls", "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = DetectFormat("blob", "text/plain; charset=windows-1251")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = DetectFormat("prices.pdf", "application/pdf")
	assert.ErrorIs(t, err, errs.ErrUnsupportedMediaType)
}

func TestParse_PositionalColumns(t *testing.T) {
	doc, err := Parse([]byte("SKU-1;1000\nSKU-UNKNOWN;500\n\nSKU-2;abc\n"), FormatText)
	require.NoError(t, err)

	assert.False(t, doc.HasHeader)
	assert.Equal(t, ';', doc.Delimiter)
	require.Len(t, doc.Rows, 3)

	assert.Equal(t, "SKU-1", doc.Rows[0].Identifier)
	assert.Equal(t, "1000", doc.Rows[0].Price.String())
	assert.False(t, doc.Rows[0].Invalid)

	assert.Equal(t, "SKU-UNKNOWN", doc.Rows[1].Identifier)

	assert.Equal(t, "SKU-2", doc.Rows[2].Identifier)
	assert.Equal(t, 4, doc.Rows[2].Line)
	assert.True(t, doc.Rows[2].Invalid)
	assert.NotEmpty(t, doc.Rows[2].Problem)
}

func TestParse_HeaderMapping(t *testing.T) {
	input := "Название,Цена со скидкой,Цена,Артикул\n" +
		"\"Кабель, медный\",900,1000,CAB-1\n" +
		"Коммутатор,,2500,\n" +
		",,100,\n"

	doc, err := Parse([]byte(input), FormatText)
	require.NoError(t, err)
	assert.True(t, doc.HasHeader)
	require.Len(t, doc.Rows, 3)

	first := doc.Rows[0]
	assert.Equal(t, "CAB-1", first.Identifier)
	assert.Equal(t, "Кабель, медный", first.Name)
	assert.Equal(t, "1000", first.Price.String())
	require.True(t, first.SalePrice.Valid)
	assert.Equal(t, "900", first.SalePrice.Decimal.String())

	second := doc.Rows[1]
	assert.Equal(t, "Коммутатор", second.Identifier)
	assert.False(t, second.SalePrice.Valid)

	assert.True(t, doc.Rows[2].Invalid)
	assert.Equal(t, "identifier is missing", doc.Rows[2].Problem)
}

func TestParse_InvalidSalePrice(t *testing.T) {
	doc, err := Parse([]byte("sku\tprice\tsale_price\nA-1\t100\tcheap\n"), FormatText)
	require.NoError(t, err)
	require.Len(t, doc.Rows, 1)
	assert.True(t, doc.Rows[0].Invalid)
}

func TestParse_Windows1251(t *testing.T) {
	encoded, err := charmap.Windows1251.NewEncoder().String("наименование;цена\nКабель медный;1 500,50\n")
	require.NoError(t, err)

	doc, err := Parse([]byte(encoded), FormatText)
	require.NoError(t, err)
	assert.Equal(t, "windows-1251", doc.Encoding)
	require.Len(t, doc.Rows, 1)
	assert.Equal(t, "Кабель медный", doc.Rows[0].Identifier)
	assert.Equal(t, "1500.5", doc.Rows[0].Price.String())
}

func TestParse_EmptyFile(t *testing.T) {
	_, err := Parse([]byte("sku;price\n\n"), FormatText)
	assert.ErrorIs(t, err, errs.ErrMalformedFile)
}

func TestParse_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"SKU", "Price"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"SKU-1", 1000}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"SKU-2", 1234.5}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"SKU-3", "n/a"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	doc, err := Parse(buf.Bytes(), FormatXLSX)
	require.NoError(t, err)
	assert.True(t, doc.HasHeader)
	require.Len(t, doc.Rows, 3)
	assert.Equal(t, "1000", doc.Rows[0].Price.String())
	assert.Equal(t, "1234.5", doc.Rows[1].Price.String())
	assert.True(t, doc.Rows[2].Invalid)
}

func TestParse_XLSXWrappedNames(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Название", "Цена"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Коммутатор управляемый", 1500}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"24 порта"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"PoE+"}))
	require.NoError(t, f.SetSheetRow(sheet, "A6", &[]any{"без цены"}))
	require.NoError(t, f.SetSheetRow(sheet, "A7", &[]any{"Кабель", "90,50"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	doc, err := Parse(buf.Bytes(), FormatXLSX)
	require.NoError(t, err)
	require.Len(t, doc.Rows, 3)

	assert.Equal(t, "Коммутатор управляемый 24 порта PoE+", doc.Rows[0].Name)
	assert.Equal(t, doc.Rows[0].Name, doc.Rows[0].Identifier)
	assert.Equal(t, "1500", doc.Rows[0].Price.String())

	assert.True(t, doc.Rows[1].Invalid)
	assert.Equal(t, "без цены", doc.Rows[1].Identifier)

	assert.Equal(t, "Кабель", doc.Rows[2].Name)
	assert.Equal(t, "90.5", doc.Rows[2].Price.String())
}

func TestParse_TextKeepsPricelessRowsInvalid(t *testing.T) {
	doc, err := Parse([]byte("name;price\nRouter;100\nwireless\n"), FormatText)
	require.NoError(t, err)
	require.Len(t, doc.Rows, 2)
	assert.True(t, doc.Rows[1].Invalid)
}

func TestParse_LegacyXLS(t *testing.T) {
	_, err := Parse([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, FormatXLSX)
	assert.ErrorIs(t, err, errs.ErrMalformedFile)
}
