package nfe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/ogurasousui/stockly/internal/core/product"
	"github.com/ogurasousui/stockly/internal/core/shared"
	"github.com/ogurasousui/stockly/internal/core/stock"
)

// 明細と商品の対応づけ方法。
const (
	MatchedByEAN = "ean"
	MatchedBySKU = "sku"
)

// Dependencies は NF-e ユースケースのポートです。Gateway と OCR は未設定でもかまいません。
type Dependencies struct {
	Imports  ImportRepository
	Products ProductFinder
	Stock    StockRecorder
	Gateway  Gateway
	OCR      OCR
}

// Service は NF-e の照会・読み取り・取り込みをまとめます。
type Service struct {
	imports  ImportRepository
	products ProductFinder
	stock    StockRecorder
	gateway  Gateway
	ocr      OCR
	clock    shared.Clock
	tx       shared.TransactionManager
	newBatch func() string
}

// UseCase は NF-e ユースケースの公開インターフェースです。
type UseCase interface {
	Fetch(ctx context.Context, accessKey string) (*Invoice, error)
	Manifest(ctx context.Context, accessKey string, event ManifestEvent) error
	ExtractFromDANFE(ctx context.Context, image []byte, contentType string) (*DANFEExtraction, error)
	Import(ctx context.Context, in ImportInput) (*ImportResult, error)
	ImportXML(ctx context.Context, in ImportXMLInput) (*ImportResult, error)
	ListImports(ctx context.Context, in ListImportsInput) (*ListImportsResult, error)
}

// NewService は Service を生成します。
func NewService(deps Dependencies, clock shared.Clock, tx shared.TransactionManager) *Service {
	if clock == nil {
		clock = shared.RealClock{}
	}
	if tx == nil {
		tx = shared.NoopTransactionManager{}
	}
	return &Service{
		imports:  deps.Imports,
		products: deps.Products,
		stock:    deps.Stock,
		gateway:  deps.Gateway,
		ocr:      deps.OCR,
		clock:    clock,
		tx:       tx,
		newBatch: uuid.NewString,
	}
}

// ImportInput は解析済み NF-e の取り込み入力です。
type ImportInput struct {
	OrganizationID string
	LocationID     string
	Invoice        *Invoice
}

// ImportXMLInput は XML からの取り込み入力です。
type ImportXMLInput struct {
	OrganizationID string
	LocationID     string
	XML            io.Reader
}

// ListImportsInput は取り込み履歴の入力です。
type ListImportsInput struct {
	OrganizationID string
	PageSize       int
	PageToken      string
}

// ListImportsResult は取り込み履歴の結果です。
type ListImportsResult struct {
	Imports       []*Import
	NextPageToken string
}

// Fetch は Gateway から XML を取得して解析します。
func (s *Service) Fetch(ctx context.Context, accessKey string) (*Invoice, error) {
	key, err := ParseAccessKey(accessKey)
	if err != nil {
		return nil, err
	}
	if s.gateway == nil {
		return nil, ErrGatewayUnavailable
	}
	raw, err := s.gateway.Lookup(ctx, key.Raw)
	if err != nil {
		return nil, err
	}
	invoice, err := ParseXML(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if invoice.AccessKey != key.Raw {
		return nil, ErrAccessKeyMismatch
	}
	return invoice, nil
}

// Manifest は受領者の意思表示を登録します。
func (s *Service) Manifest(ctx context.Context, accessKey string, event ManifestEvent) error {
	key, err := ParseAccessKey(accessKey)
	if err != nil {
		return err
	}
	if !event.Valid() {
		return ErrInvalidManifest
	}
	if s.gateway == nil {
		return ErrGatewayUnavailable
	}
	return s.gateway.Manifest(ctx, key.Raw, event)
}

// ExtractFromDANFE は DANFE 画像を読み取り、アクセスキーの検証結果を付けて返します。
func (s *Service) ExtractFromDANFE(ctx context.Context, image []byte, contentType string) (*DANFEExtraction, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}
	if s.ocr == nil {
		return nil, ErrGatewayUnavailable
	}
	extraction, err := s.ocr.ExtractFromDANFE(ctx, image, contentType)
	if err != nil {
		return nil, err
	}
	if key, err := ParseAccessKey(extraction.AccessKey); err == nil {
		extraction.AccessKey = key.Raw
		extraction.AccessKeyValid = true
		if extraction.EmitterCNPJ == "" {
			extraction.EmitterCNPJ = key.EmitterCNPJ
		}
	} else {
		extraction.AccessKeyValid = false
	}
	return extraction, nil
}

// ImportXML は XML を解析して取り込みます。
func (s *Service) ImportXML(ctx context.Context, in ImportXMLInput) (*ImportResult, error) {
	if in.XML == nil {
		return nil, ErrInvalidXML
	}
	invoice, err := ParseXML(in.XML)
	if err != nil {
		return nil, err
	}
	return s.Import(ctx, ImportInput{
		OrganizationID: in.OrganizationID,
		LocationID:     in.LocationID,
		Invoice:        invoice,
	})
}

// Import は明細を EAN、次に SKU で商品に対応づけ、対応した明細を 1 トランザクションで入庫します。
// 対応しない明細と無効な商品の明細は Unmatched として返します。取り込み済みのアクセスキーは ErrAlreadyImported です。
func (s *Service) Import(ctx context.Context, in ImportInput) (*ImportResult, error) {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return nil, err
	}
	locationID := strings.TrimSpace(in.LocationID)
	if locationID == "" {
		return nil, ErrInvalidLocation
	}
	if in.Invoice == nil {
		return nil, ErrInvalidXML
	}
	key, err := ParseAccessKey(in.Invoice.AccessKey)
	if err != nil {
		return nil, err
	}
	invoice := in.Invoice

	result := &ImportResult{}
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		exists, err := s.imports.Exists(txCtx, orgID, key.Raw)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyImported
		}

		reference := key.Raw
		occurredAt := invoice.IssuedAt
		for _, item := range invoice.Items {
			p, matchedBy, err := s.match(txCtx, orgID, item)
			if err != nil {
				return err
			}
			if p == nil || p.Status != product.StatusActive || !item.Quantity.IsPositive() {
				result.Unmatched = append(result.Unmatched, item)
				continue
			}
			unitCost := item.UnitValue
			m, err := s.stock.RegisterEntry(txCtx, stock.MovementInput{
				OrganizationID: orgID,
				ProductID:      p.ID,
				LocationID:     locationID,
				Quantity:       item.Quantity,
				UnitCost:       &unitCost,
				Reference:      &reference,
				OccurredAt:     &occurredAt,
			})
			if err != nil {
				return fmt.Errorf("line %d: %w", item.Line, err)
			}
			result.Imported = append(result.Imported, ImportedLine{
				Item:       item,
				ProductID:  p.ID,
				MatchedBy:  matchedBy,
				MovementID: m.ID,
			})
		}

		created, err := s.imports.Create(txCtx, &Import{
			OrganizationID: orgID,
			AccessKey:      key.Raw,
			Number:         invoice.Number,
			Series:         invoice.Series,
			EmitterCNPJ:    invoice.EmitterCNPJ,
			EmitterName:    invoice.EmitterName,
			BatchID:        s.newBatch(),
			LocationID:     locationID,
			ImportedLines:  len(result.Imported),
			UnmatchedLines: len(result.Unmatched),
			TotalValue:     invoice.TotalValue,
			ImportedAt:     s.clock.Now(),
		})
		if err != nil {
			return err
		}
		result.Import = created
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// ListImports は取り込み履歴を返します。
func (s *Service) ListImports(ctx context.Context, in ListImportsInput) (*ListImportsResult, error) {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return nil, err
	}
	limit, err := shared.NormalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}
	offset, err := shared.ParsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	result := &ListImportsResult{}
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		imports, token, err := s.imports.List(txCtx, orgID, limit, offset)
		if err != nil {
			return err
		}
		result.Imports = imports
		result.NextPageToken = token
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) match(ctx context.Context, orgID string, item InvoiceItem) (*product.Product, string, error) {
	if item.EAN != "" {
		p, err := s.products.FindByEAN(ctx, orgID, item.EAN)
		switch {
		case err == nil:
			return p, MatchedByEAN, nil
		case !errors.Is(err, product.ErrProductNotFound):
			return nil, "", err
		}
	}
	sku, err := product.NormalizeSKU(item.Code)
	if err != nil {
		return nil, "", nil
	}
	p, err := s.products.FindBySKU(ctx, orgID, sku)
	switch {
	case err == nil:
		return p, MatchedBySKU, nil
	case errors.Is(err, product.ErrProductNotFound):
		return nil, "", nil
	default:
		return nil, "", err
	}
}
