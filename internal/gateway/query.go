package gateway

import (
	"net/url"
	"strings"
)

// Direction 排序方向
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type param struct{ key, value string }

// Query PostgREST 风格的过滤 / 排序 / 投影表达式，按添加顺序编码
type Query struct {
	params []param
}

func NewQuery() Query { return Query{} }

func (q Query) with(key, value string) Query {
	params := make([]param, len(q.params), len(q.params)+1)
	copy(params, q.params)
	q.params = append(params, param{key: key, value: value})
	return q
}

// Select 投影列，如 "*"
func (q Query) Select(columns string) Query { return q.with("select", columns) }

// Eq column=eq.value
func (q Query) Eq(column, value string) Query { return q.with(column, "eq."+value) }

// In column=in.(a,b,c)
func (q Query) In(column string, values ...string) Query {
	return q.with(column, "in.("+strings.Join(values, ",")+")")
}

// Order order=column.dir
func (q Query) Order(column string, dir Direction) Query {
	return q.with("order", column+"."+string(dir))
}

// String 编码后的查询串（不含 ?）
func (q Query) String() string {
	var b strings.Builder
	for i, p := range q.params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(escapeValue(p.value))
	}
	return b.String()
}

// PostgREST 运算符里的 ( ) , * 保持原样，便于阅读日志
var operatorChars = strings.NewReplacer("%28", "(", "%29", ")", "%2C", ",", "%2A", "*")

func escapeValue(v string) string { return operatorChars.Replace(url.QueryEscape(v)) }
