package handler

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ogurasousui/stockly/internal/platform/format"
)

const dateLayout = "2006-01-02"

// request は google.protobuf.Struct のフィールドを型付きで読み出します。
// 最初の型エラーを保持し、validate で InvalidArgument として返します。
type request struct {
	fields map[string]*structpb.Value
	prefix string
	err    error
}

func newRequest(s *structpb.Struct) *request {
	r := &request{fields: map[string]*structpb.Value{}}
	if s != nil && s.Fields != nil {
		r.fields = s.Fields
	}
	return r
}

func (r *request) fail(key, want string) {
	if r.err == nil {
		r.err = status.Errorf(codes.InvalidArgument, "field %s%s must be %s", r.prefix, key, want)
	}
}

func (r *request) validate() error {
	return r.err
}

func (r *request) value(key string) (*structpb.Value, bool) {
	v, ok := r.fields[key]
	if !ok || v == nil {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v, true
}

func (r *request) has(key string) bool {
	_, ok := r.value(key)
	return ok
}

// present は null を含め、キーが送られたかを返します。
func (r *request) present(key string) bool {
	_, ok := r.fields[key]
	return ok
}

func (r *request) str(key string) string {
	if p := r.optStr(key); p != nil {
		return *p
	}
	return ""
}

func (r *request) optStr(key string) *string {
	v, ok := r.value(key)
	if !ok {
		return nil
	}
	s, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		r.fail(key, "a string")
		return nil
	}
	out := s.StringValue
	return &out
}

func (r *request) integer(key string) int {
	if p := r.optInteger(key); p != nil {
		return *p
	}
	return 0
}

func (r *request) optInteger(key string) *int {
	v, ok := r.value(key)
	if !ok {
		return nil
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber || n.NumberValue != math.Trunc(n.NumberValue) {
		r.fail(key, "an integer")
		return nil
	}
	out := int(n.NumberValue)
	return &out
}

func (r *request) boolean(key string) bool {
	v, ok := r.value(key)
	if !ok {
		return false
	}
	b, isBool := v.GetKind().(*structpb.Value_BoolValue)
	if !isBool {
		r.fail(key, "a boolean")
		return false
	}
	return b.BoolValue
}

// dec は文字列 ("12.50") と数値のどちらも受け付けます。金額は文字列を推奨します。
func (r *request) dec(key string) decimal.Decimal {
	if p := r.optDec(key); p != nil {
		return *p
	}
	return decimal.Zero
}

func (r *request) optDec(key string) *decimal.Decimal {
	v, ok := r.value(key)
	if !ok {
		return nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(kind.StringValue)
		if err != nil {
			// "R$ 1.234,56" のような表示形式も受け付ける
			if d, err = format.ParseBRL(kind.StringValue); err != nil {
				r.fail(key, "a decimal")
				return nil
			}
		}
		return &d
	case *structpb.Value_NumberValue:
		d := decimal.NewFromFloat(kind.NumberValue)
		return &d
	default:
		r.fail(key, "a decimal")
		return nil
	}
}

// optTime は RFC 3339 と YYYY-MM-DD を受け付けます。
func (r *request) optTime(key string) *time.Time {
	raw := r.optStr(key)
	if raw == nil {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, *raw); err == nil {
		return &t
	}
	t, err := time.ParseInLocation(dateLayout, *raw, time.UTC)
	if err != nil {
		r.fail(key, "an RFC 3339 timestamp or YYYY-MM-DD date")
		return nil
	}
	return &t
}

func (r *request) timestamp(key string) time.Time {
	if p := r.optTime(key); p != nil {
		return *p
	}
	return time.Time{}
}

func (r *request) stringList(key string) []string {
	v, ok := r.value(key)
	if !ok {
		return nil
	}
	list := v.GetListValue()
	if list == nil {
		r.fail(key, "a list of strings")
		return nil
	}
	out := make([]string, 0, len(list.Values))
	for _, item := range list.Values {
		s, isString := item.GetKind().(*structpb.Value_StringValue)
		if !isString {
			r.fail(key, "a list of strings")
			return nil
		}
		out = append(out, s.StringValue)
	}
	return out
}

// objects は オブジェクトのリストを読み出します。子の型エラーは親に伝播します。
func (r *request) objects(key string) []*request {
	v, ok := r.value(key)
	if !ok {
		return nil
	}
	list := v.GetListValue()
	if list == nil {
		r.fail(key, "a list of objects")
		return nil
	}
	out := make([]*request, 0, len(list.Values))
	for i, item := range list.Values {
		obj := item.GetStructValue()
		if obj == nil {
			r.fail(key, "a list of objects")
			return nil
		}
		child := newRequest(obj)
		child.prefix = fmt.Sprintf("%s%s[%d].", r.prefix, key, i)
		out = append(out, child)
	}
	return out
}

// collect は子の型エラーを親に取り込みます。
func (r *request) collect(children []*request) {
	for _, c := range children {
		if c.err != nil && r.err == nil {
			r.err = c.err
		}
	}
}

// object は structpb.NewStruct が受け付ける値だけで組み立てる応答です。
type object map[string]interface{}

func reply(o object) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(o)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}

func timeValue(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func optTimeValue(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return timeValue(*t)
}

func dateValue(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(dateLayout)
}

func optStringValue(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func decValue(d decimal.Decimal) string {
	return d.String()
}

// maskedValue は数字だけで保存された書類番号や電話番号を表示用に整形します。
func maskedValue(s *string, mask func(string) string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return mask(*s)
}

func stringsValue(items []string) []interface{} {
	out := make([]interface{}, 0, len(items))
	for _, s := range items {
		out = append(out, s)
	}
	return out
}

func listValue[T any](items []T, fn func(T) object) []interface{} {
	out := make([]interface{}, 0, len(items))
	for _, item := range items {
		out = append(out, map[string]interface{}(fn(item)))
	}
	return out
}

func nested(o object) map[string]interface{} {
	if o == nil {
		return nil
	}
	return map[string]interface{}(o)
}
