// Package shared はユースケース層で共通に使う時計・トランザクション・ページングの部品を提供します。
package shared

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidPageSize は一覧取得時のページサイズが不正な場合に返却されます。
	ErrInvalidPageSize = errors.New("invalid page size")
	// ErrInvalidPageToken は一覧取得時のページトークンが不正な場合に返却されます。
	ErrInvalidPageToken = errors.New("invalid page token")
	// ErrInvalidOrganizationID は組織 ID が指定されていない場合に返却されます。
	ErrInvalidOrganizationID = errors.New("invalid organization id")
)

const (
	DefaultListPageSize = 50
	MaxListPageSize     = 200
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

// RealClock は UTC の現在時刻を返します。
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

// NoopTransactionManager はトランザクションを張らずに fn を実行します。
type NoopTransactionManager struct{}

func (NoopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (NoopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// NormalizeOrganizationID は組織 ID を検証します。
func NormalizeOrganizationID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidOrganizationID
	}
	return trimmed, nil
}

// NormalizePageSize は 0 以下を既定値に置き換え、上限を超える値を拒否します。
func NormalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return DefaultListPageSize, nil
	}
	if pageSize > MaxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

// ParsePageToken はオフセット形式のページトークンを解釈します。
func ParsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}

// NextPageToken は取得件数から次ページのトークンを算出します。
// items は limit+1 件まで取得した結果を想定しています。
func NextPageToken(fetched, limit, offset int) string {
	if fetched > limit {
		return strconv.Itoa(offset + limit)
	}
	return ""
}

// NormalizeOptionalString は空白のみの文字列を nil として扱います。
func NormalizeOptionalString(raw *string) *string {
	if raw == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// TruncateDate は時刻を UTC の日付に丸めます。
func TruncateDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	normalized := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &normalized
}

// Invalidator は組織単位で導出されたデータ (コンプライアンス集計のキャッシュなど) を破棄します。
// 更新系ユースケースはコミット後に呼び出します。
type Invalidator interface {
	Invalidate(ctx context.Context, organizationID string) error
}

// NoopInvalidator は何もしない Invalidator です。
type NoopInvalidator struct{}

func (NoopInvalidator) Invalidate(context.Context, string) error {
	return nil
}
