package nfe

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice は NF-e の取り込みに必要な項目です。
type Invoice struct {
	AccessKey   string
	Number      string
	Series      string
	IssuedAt    time.Time
	EmitterCNPJ string
	EmitterName string
	Items       []InvoiceItem
	TotalValue  decimal.Decimal
}

// InvoiceItem は NF-e の明細 (det/prod) です。
type InvoiceItem struct {
	Line        int
	Code        string
	EAN         string
	Description string
	NCM         string
	CFOP        string
	Unit        string
	Quantity    decimal.Decimal
	UnitValue   decimal.Decimal
	Total       decimal.Decimal
}

// ManifestEvent は受領者の意思表示です。
type ManifestEvent string

const (
	ManifestAwareness    ManifestEvent = "ciencia"
	ManifestConfirmed    ManifestEvent = "confirmacao"
	ManifestUnknown      ManifestEvent = "desconhecimento"
	ManifestNotPerformed ManifestEvent = "nao_realizada"
)

// Valid は既知のイベントかを返します。
func (e ManifestEvent) Valid() bool {
	switch e {
	case ManifestAwareness, ManifestConfirmed, ManifestUnknown, ManifestNotPerformed:
		return true
	default:
		return false
	}
}

// DANFEExtraction は DANFE 画像から OCR で読み取った項目です。
type DANFEExtraction struct {
	AccessKey      string
	AccessKeyValid bool
	Number         string
	Series         string
	EmitterCNPJ    string
	EmitterName    string
	IssuedAt       *time.Time
	TotalValue     *decimal.Decimal
	Confidence     float64
}

// Import は取り込み済み NF-e の記録です。同じアクセスキーは組織内で 1 度だけ取り込めます。
type Import struct {
	ID             string
	OrganizationID string
	AccessKey      string
	Number         string
	Series         string
	EmitterCNPJ    string
	EmitterName    string
	BatchID        string
	LocationID     string
	ImportedLines  int
	UnmatchedLines int
	TotalValue     decimal.Decimal
	ImportedAt     time.Time
}

// ImportedLine は商品に対応づけて入庫した明細です。
type ImportedLine struct {
	Item       InvoiceItem
	ProductID  string
	MatchedBy  string
	MovementID string
}

// ImportResult は取り込みの結果です。
type ImportResult struct {
	Import    *Import
	Imported  []ImportedLine
	Unmatched []InvoiceItem
}
