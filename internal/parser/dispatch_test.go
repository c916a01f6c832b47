package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDispatcher(fallback string) *Dispatcher {
	return NewDispatcher(newTestSet(), zap.NewNop(), fallback)
}

const neutralText = "Invoice 123\nSome goods\nTotal 10.00\n"

func TestDetectContentBeatsDomain(t *testing.T) {
	d := newTestDispatcher("")

	// Forwarded mail: CLF's domain but a Hunt's document inside.
	tag, err := d.Detect("Hunt's Food Group Ltd\nINVOICE 349216\n", "clfdistribution.com")
	require.NoError(t, err)
	assert.Equal(t, SupplierHunts, tag)
}

func TestDetectByDomainAlone(t *testing.T) {
	d := newTestDispatcher("")

	tag, err := d.Detect(neutralText, "biocare.co.uk")
	require.NoError(t, err)
	assert.Equal(t, SupplierBiocare, tag)
}

func TestDetectByContentAlone(t *testing.T) {
	d := newTestDispatcher("")

	tag, err := d.Detect("CLF Distribution Ltd\nInvoice Number: PSI-1\n", "")
	require.NoError(t, err)
	assert.Equal(t, SupplierCLF, tag)

	// Content markers cover reference formats too.
	tag, err = d.Detect("Invoice SIN0734126\n", "")
	require.NoError(t, err)
	assert.Equal(t, SupplierKinetic, tag)
}

func TestDetectNoMatchFailsClosed(t *testing.T) {
	d := newTestDispatcher("")

	_, err := d.Detect(neutralText, "random-sender.example")
	assert.ErrorIs(t, err, ErrUnsupportedSupplier)
}

func TestDetectFallbackSupplier(t *testing.T) {
	d := newTestDispatcher(SupplierCLF)

	tag, err := d.Detect(neutralText, "random-sender.example")
	require.NoError(t, err)
	assert.Equal(t, SupplierCLF, tag)
}

func TestDetectUnregisteredFallback(t *testing.T) {
	d := newTestDispatcher("nonsense")

	_, err := d.Detect(neutralText, "")
	assert.ErrorIs(t, err, ErrUnsupportedSupplier)
}

func TestParseRoutesMultiInvoiceDocument(t *testing.T) {
	d := newTestDispatcher("")

	tag, records, err := d.Parse(huntsTwoInvoiceText, "huntsfoodgroup.co.uk")
	require.NoError(t, err)
	assert.Equal(t, SupplierHunts, tag)
	require.Len(t, records, 2)
	assert.Equal(t, "349216", records[0].SupplierReference)
	assert.Equal(t, "349217", records[1].SupplierReference)
}

func TestParsePropagatesExtractorError(t *testing.T) {
	d := newTestDispatcher("")

	tag, _, err := d.Parse("Essential Trading Co-operative Ltd\nStatement of Account\n", "essential-trading.coop")
	assert.Equal(t, SupplierEssential, tag)
	assert.ErrorIs(t, err, ErrEssentialDate)
}

func TestTagsUniqueAndComplete(t *testing.T) {
	tags := Tags()
	assert.Len(t, tags, 16)
	seen := map[string]bool{}
	for _, tag := range tags {
		assert.False(t, seen[tag], "duplicate tag %s", tag)
		seen[tag] = true
	}
	assert.Contains(t, tags, SupplierHunts)
	assert.Contains(t, tags, SupplierWatsonPratt)
}
