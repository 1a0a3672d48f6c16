package nfe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/ogurasousui/stockly/internal/core/product"
	"github.com/ogurasousui/stockly/internal/core/stock"
)

const testOrg = "org-1"

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type fakeImports struct {
	items []*Import
}

func (f *fakeImports) Exists(_ context.Context, orgID, key string) (bool, error) {
	for _, imp := range f.items {
		if imp.OrganizationID == orgID && imp.AccessKey == key {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeImports) Create(_ context.Context, imp *Import) (*Import, error) {
	c := *imp
	c.ID = fmt.Sprintf("imp-%d", len(f.items)+1)
	f.items = append(f.items, &c)
	out := c
	return &out, nil
}

func (f *fakeImports) List(_ context.Context, orgID string, _, _ int) ([]*Import, string, error) {
	var out []*Import
	for _, imp := range f.items {
		if imp.OrganizationID == orgID {
			out = append(out, imp)
		}
	}
	return out, "", nil
}

type fakeProducts struct {
	items []*product.Product
}

func (f *fakeProducts) FindByEAN(_ context.Context, orgID, ean string) (*product.Product, error) {
	for _, p := range f.items {
		if p.OrganizationID == orgID && p.EAN != nil && *p.EAN == ean {
			return p, nil
		}
	}
	return nil, product.ErrProductNotFound
}

func (f *fakeProducts) FindBySKU(_ context.Context, orgID, sku string) (*product.Product, error) {
	for _, p := range f.items {
		if p.OrganizationID == orgID && p.SKU == sku {
			return p, nil
		}
	}
	return nil, product.ErrProductNotFound
}

type fakeStock struct {
	entries []stock.MovementInput
}

func (f *fakeStock) RegisterEntry(_ context.Context, in stock.MovementInput) (*stock.Movement, error) {
	f.entries = append(f.entries, in)
	return &stock.Movement{ID: fmt.Sprintf("mov-%d", len(f.entries)), ProductID: in.ProductID}, nil
}

type fakeGateway struct {
	xml       []byte
	err       error
	manifests []ManifestEvent
}

func (f *fakeGateway) Lookup(_ context.Context, _ string) ([]byte, error) {
	return f.xml, f.err
}

func (f *fakeGateway) Manifest(_ context.Context, _ string, event ManifestEvent) error {
	f.manifests = append(f.manifests, event)
	return nil
}

type fakeOCR struct {
	extraction DANFEExtraction
}

func (f *fakeOCR) ExtractFromDANFE(_ context.Context, _ []byte, _ string) (*DANFEExtraction, error) {
	e := f.extraction
	return &e, nil
}

type fixture struct {
	svc     *Service
	imports *fakeImports
	stock   *fakeStock
	gateway *fakeGateway
	ocr     *fakeOCR
}

func newFixture() *fixture {
	ean := "7891234567895"
	f := &fixture{
		imports: &fakeImports{},
		stock:   &fakeStock{},
		gateway: &fakeGateway{},
		ocr:     &fakeOCR{},
	}
	products := &fakeProducts{items: []*product.Product{
		{ID: "p-luva", OrganizationID: testOrg, SKU: "LUVA-01", EAN: &ean, Status: product.StatusActive},
		{ID: "p-bota", OrganizationID: testOrg, SKU: "BOTA-40", Status: product.StatusActive},
	}}
	f.svc = NewService(Dependencies{
		Imports:  f.imports,
		Products: products,
		Stock:    f.stock,
		Gateway:  f.gateway,
		OCR:      f.ocr,
	}, &stubClock{now: time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)}, nil)
	f.svc.newBatch = func() string { return "batch-1" }
	return f
}

func TestService_ImportXML(t *testing.T) {
	t.Parallel()

	f := newFixture()
	result, err := f.svc.ImportXML(context.Background(), ImportXMLInput{
		OrganizationID: testOrg,
		LocationID:     "loc-1",
		XML:            openFixture(t, "nfe_proc.xml"),
	})
	if err != nil {
		t.Fatalf("ImportXML returned error: %v", err)
	}

	if len(result.Imported) != 2 || len(result.Unmatched) != 1 {
		t.Fatalf("expected 2 imported and 1 unmatched, got %d/%d", len(result.Imported), len(result.Unmatched))
	}
	if result.Imported[0].ProductID != "p-luva" || result.Imported[0].MatchedBy != MatchedByEAN {
		t.Errorf("expected EAN match for first line, got %+v", result.Imported[0])
	}
	if result.Imported[1].ProductID != "p-bota" || result.Imported[1].MatchedBy != MatchedBySKU {
		t.Errorf("expected SKU match for second line, got %+v", result.Imported[1])
	}
	if result.Unmatched[0].Code != "XYZ-999" {
		t.Errorf("unexpected unmatched line %+v", result.Unmatched[0])
	}
	if result.Import.BatchID != "batch-1" || result.Import.ImportedLines != 2 || result.Import.UnmatchedLines != 1 {
		t.Errorf("unexpected import record %+v", result.Import)
	}

	if len(f.stock.entries) != 2 {
		t.Fatalf("expected 2 stock entries, got %d", len(f.stock.entries))
	}
	entry := f.stock.entries[0]
	if entry.Reference == nil || *entry.Reference != validKey {
		t.Errorf("expected access key as reference, got %v", entry.Reference)
	}
	if entry.UnitCost == nil || entry.UnitCost.String() != "3.25" {
		t.Errorf("expected unit value as cost, got %v", entry.UnitCost)
	}
}

func TestService_Import_AlreadyImported(t *testing.T) {
	t.Parallel()

	f := newFixture()
	in := ImportXMLInput{OrganizationID: testOrg, LocationID: "loc-1"}

	in.XML = openFixture(t, "nfe_proc.xml")
	if _, err := f.svc.ImportXML(context.Background(), in); err != nil {
		t.Fatalf("first import returned error: %v", err)
	}
	in.XML = openFixture(t, "nfe_proc.xml")
	if _, err := f.svc.ImportXML(context.Background(), in); !errors.Is(err, ErrAlreadyImported) {
		t.Fatalf("expected ErrAlreadyImported, got %v", err)
	}
	if len(f.stock.entries) != 2 {
		t.Fatalf("expected no additional entries, got %d", len(f.stock.entries))
	}

	in.OrganizationID = "org-2"
	in.XML = openFixture(t, "nfe_proc.xml")
	if _, err := f.svc.ImportXML(context.Background(), in); err != nil {
		t.Fatalf("import into another organization returned error: %v", err)
	}
}

func TestService_Import_RequiresLocation(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := f.svc.Import(context.Background(), ImportInput{OrganizationID: testOrg, Invoice: &Invoice{AccessKey: validKey}})
	if !errors.Is(err, ErrInvalidLocation) {
		t.Fatalf("expected ErrInvalidLocation, got %v", err)
	}
}

func TestService_Fetch(t *testing.T) {
	t.Parallel()

	raw, err := os.ReadFile("testdata/nfe_proc.xml")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	f := newFixture()
	f.gateway.xml = raw
	invoice, err := f.svc.Fetch(context.Background(), validKey)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if invoice.Number != "1234" {
		t.Errorf("unexpected invoice %+v", invoice)
	}

	if _, err := f.svc.Fetch(context.Background(), validKeyZeroDV); !errors.Is(err, ErrAccessKeyMismatch) {
		t.Fatalf("expected ErrAccessKeyMismatch, got %v", err)
	}
	if _, err := f.svc.Fetch(context.Background(), "123"); !errors.Is(err, ErrInvalidAccessKey) {
		t.Fatalf("expected ErrInvalidAccessKey, got %v", err)
	}
}

func TestService_Manifest(t *testing.T) {
	t.Parallel()

	f := newFixture()
	if err := f.svc.Manifest(context.Background(), validKey, ManifestConfirmed); err != nil {
		t.Fatalf("Manifest returned error: %v", err)
	}
	if err := f.svc.Manifest(context.Background(), validKey, ManifestEvent("aceite")); !errors.Is(err, ErrInvalidManifest) {
		t.Fatalf("expected ErrInvalidManifest, got %v", err)
	}
	if len(f.gateway.manifests) != 1 || f.gateway.manifests[0] != ManifestConfirmed {
		t.Fatalf("unexpected manifests %v", f.gateway.manifests)
	}

	noGateway := NewService(Dependencies{}, nil, nil)
	if err := noGateway.Manifest(context.Background(), validKey, ManifestAwareness); !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}

func TestService_ExtractFromDANFE(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.ocr.extraction = DANFEExtraction{AccessKey: "3525 0611 2223 3300 0181 5500 1000 0012 3410 0000 0014", Confidence: 0.93}

	got, err := f.svc.ExtractFromDANFE(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg")
	if err != nil {
		t.Fatalf("ExtractFromDANFE returned error: %v", err)
	}
	if !got.AccessKeyValid || got.AccessKey != validKey || got.EmitterCNPJ != "11222333000181" {
		t.Errorf("unexpected extraction %+v", got)
	}

	f.ocr.extraction = DANFEExtraction{AccessKey: "0000"}
	got, err = f.svc.ExtractFromDANFE(context.Background(), []byte{0x01}, "image/png")
	if err != nil {
		t.Fatalf("ExtractFromDANFE returned error: %v", err)
	}
	if got.AccessKeyValid {
		t.Error("expected invalid key to be flagged")
	}

	if _, err := f.svc.ExtractFromDANFE(context.Background(), nil, "image/png"); !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("expected ErrEmptyImage, got %v", err)
	}
}
