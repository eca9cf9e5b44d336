package directory

import (
	"strings"

	"gitlab.com/dirk.krummacker/phonebook-service/internal/database"
	"gitlab.com/dirk.krummacker/phonebook-service/internal/model"
)

// Allowed values for Query.Sort.
const (
	SortName     = "name"
	SortPhone    = "phone"
	SortCity     = "city"
	SortState    = "state"
	SortPostcode = "postcode"
)

// Allowed values for Query.Direction.
const (
	DirectionAsc  = "asc"
	DirectionDesc = "desc"
)

const (
	// DefaultPageSize is used when neither the request nor the configuration sets a page size.
	DefaultPageSize = 20

	// MaxPageSize caps the page size a request may ask for.
	MaxPageSize = 100
)

// sortColumns maps each allowed sort key to the columns it orders by. Only these column names
// ever reach an ORDER BY clause.
var sortColumns = map[string][]string{
	SortName:     {"surname", "first_name"},
	SortPhone:    {"phone"},
	SortCity:     {"city"},
	SortState:    {"state"},
	SortPostcode: {"postcode"},
}

// matchField is one searchable expression: a single column, or several columns joined by a
// separator.
type matchField struct {
	columns   []string
	separator string
}

// matchFields are OR'd together when searching. The three name combinations let "Olivia Smith",
// "Smith Olivia" and "Smith, Olivia" all find the same record.
var matchFields = []matchField{
	{columns: []string{"first_name"}},
	{columns: []string{"surname"}},
	{columns: []string{"first_name", "surname"}, separator: " "},
	{columns: []string{"surname", "first_name"}, separator: " "},
	{columns: []string{"surname", "first_name"}, separator: ", "},
	{columns: []string{"phone"}},
	{columns: []string{"city"}},
	{columns: []string{"state"}},
	{columns: []string{"postcode"}},
}

// likeEscape is the escape character declared in every LIKE predicate.
const likeEscape = "!"

// Query selects one page of records.
type Query struct {
	Search    string
	Sort      string
	Direction string
	Page      int
	PageSize  int
}

// Normalize coerces every parameter into its allowed range. Unknown sort keys become SortName,
// unknown directions become DirectionAsc, pages start at 1, and a missing page size falls back
// to defaultPageSize.
func (q Query) Normalize(defaultPageSize int) Query {
	q.Search = strings.TrimSpace(q.Search)
	if _, ok := sortColumns[q.Sort]; !ok {
		q.Sort = SortName
	}
	if strings.ToLower(strings.TrimSpace(q.Direction)) == DirectionDesc {
		q.Direction = DirectionDesc
	} else {
		q.Direction = DirectionAsc
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

// offset returns the number of matching records before the requested page. It overflows for
// pages far past the last one, so callers check the page against the page count first.
func (q Query) offset() int {
	return (q.Page - 1) * q.PageSize
}

// dialect holds the SQL differences between the supported databases.
type dialect struct {
	// lower names the function that lower-cases text for case-insensitive matching.
	lower  string
	concat func(parts []string) string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case database.DriverMySQL:
		return dialect{lower: "LOWER", concat: func(parts []string) string {
			return "CONCAT(" + strings.Join(parts, ", ") + ")"
		}}, nil
	case database.DriverSQLite:
		return dialect{lower: database.SQLiteLower, concat: func(parts []string) string {
			return strings.Join(parts, " || ")
		}}, nil
	default:
		return dialect{}, database.ErrUnsupportedDriver
	}
}

// expression renders the field as an SQL expression.
func (m matchField) expression(d dialect) string {
	if len(m.columns) == 1 {
		return m.columns[0]
	}
	parts := make([]string, 0, 2*len(m.columns)-1)
	for i, column := range m.columns {
		if i > 0 {
			parts = append(parts, "'"+m.separator+"'")
		}
		parts = append(parts, column)
	}
	return d.concat(parts)
}

// whereClause returns the WHERE clause and its arguments for a search term. An empty term
// matches every record. The term is matched as a case-insensitive literal substring.
func whereClause(d dialect, search string) (string, []interface{}) {
	if search == "" {
		return "", nil
	}
	pattern := "%" + escapeLike(search) + "%"
	predicates := make([]string, 0, len(matchFields))
	args := make([]interface{}, 0, len(matchFields))
	for _, field := range matchFields {
		predicates = append(predicates,
			d.lower+"("+field.expression(d)+") LIKE "+d.lower+"(?) ESCAPE '"+likeEscape+"'")
		args = append(args, pattern)
	}
	return " WHERE (" + strings.Join(predicates, " OR ") + ")", args
}

// escapeLike makes LIKE wildcards in s match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(
		likeEscape, likeEscape+likeEscape,
		"%", likeEscape+"%",
		"_", likeEscape+"_",
	).Replace(s)
}

// orderByClause returns the ORDER BY clause for a normalized query. Records with equal sort
// values are ordered by ascending id.
func orderByClause(q Query) string {
	direction := "ASC"
	if q.Direction == DirectionDesc {
		direction = "DESC"
	}
	columns := sortColumns[q.Sort]
	terms := make([]string, 0, len(columns)+1)
	for _, column := range columns {
		terms = append(terms, column+" "+direction)
	}
	terms = append(terms, "id ASC")
	return " ORDER BY " + strings.Join(terms, ", ")
}

// Page is one page of a listing together with the normalized query that produced it.
type Page struct {
	Records   []model.Record
	Total     int64
	Page      int
	PageSize  int
	PageCount int
	Sort      string
	Direction string
	Search    string
}

// newPage computes the paging metadata for a normalized query and its total match count.
// There is always at least one page, even when nothing matches.
func newPage(q Query, total int64) Page {
	pageCount := int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	if pageCount < 1 {
		pageCount = 1
	}
	return Page{
		Records:   []model.Record{},
		Total:     total,
		Page:      q.Page,
		PageSize:  q.PageSize,
		PageCount: pageCount,
		Sort:      q.Sort,
		Direction: q.Direction,
		Search:    q.Search,
	}
}

// PrevPage returns the number of the preceding page, if there is one.
func (p Page) PrevPage() (int, bool) {
	if p.Page <= 1 {
		return 0, false
	}
	return p.Page - 1, true
}

// NextPage returns the number of the following page, if there is one.
func (p Page) NextPage() (int, bool) {
	if p.Page >= p.PageCount {
		return 0, false
	}
	return p.Page + 1, true
}
