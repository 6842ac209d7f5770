package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/campus-gateway/pkg/resourcestore"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements resourcestore.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", resourcestore.ErrDuplicateResource, pgErr.ConstraintName)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "23514": // check_violation
			return fmt.Errorf("constraint %s violated in %s", pgErr.ConstraintName, operation)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return resourcestore.ErrResourceNotFound
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

const resourceColumns = `
	id, title, uploader_id, resource_type, category, semester_tag, description, tags,
	COALESCE(blob_key, ''), COALESCE(original_filename, ''), COALESCE(file_size_bytes, 0),
	COALESCE(mime_type, ''), COALESCE(link_url, ''), download_count, created_at, updated_at`

func scanResource(row pgx.Row) (*resourcestore.Resource, error) {
	var res resourcestore.Resource
	var resourceType string
	err := row.Scan(
		&res.ID, &res.Title, &res.UploaderID, &resourceType, &res.Category,
		&res.SemesterTag, &res.Description, &res.Tags,
		&res.BlobKey, &res.OriginalFilename, &res.FileSizeBytes,
		&res.MimeType, &res.LinkURL, &res.DownloadCount, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	res.ResourceType = resourcestore.ResourceType(resourceType)
	if res.Tags == nil {
		res.Tags = []string{}
	}
	return &res, nil
}

func (r *Repository) CreateResource(ctx context.Context, resource *resourcestore.Resource) error {
	if resource.Tags == nil {
		resource.Tags = []string{}
	}
	query := `
		INSERT INTO resources (
			id, title, uploader_id, resource_type, category, semester_tag, description, tags,
			blob_key, original_filename, file_size_bytes, mime_type, link_url, search_vector
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, 0), NULLIF($12, ''), NULLIF($13, ''),
			setweight(to_tsvector('simple', $14), 'A') ||
			setweight(to_tsvector('simple', $15), 'B') ||
			setweight(to_tsvector('simple', $16), 'C')
		)
		RETURNING created_at, updated_at`

	doc := newSearchDocument(resource)
	err := r.db.QueryRow(ctx, query,
		resource.ID, resource.Title, resource.UploaderID, string(resource.ResourceType),
		resource.Category, resource.SemesterTag, resource.Description, resource.Tags,
		resource.BlobKey, resource.OriginalFilename, resource.FileSizeBytes,
		resource.MimeType, resource.LinkURL,
		doc.title, doc.body, doc.extra,
	).Scan(&resource.CreatedAt, &resource.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create resource", err)
	}
	return nil
}

// searchDocument holds the weighted text behind search_vector, pre-tokenized
// the same way queries are so the Postgres parser never sees dotted words.
type searchDocument struct {
	title string
	body  string
	extra string
}

func newSearchDocument(res *resourcestore.Resource) searchDocument {
	return searchDocument{
		title: resourcestore.SearchText(res.Title),
		body:  resourcestore.SearchText(append([]string{res.Description}, res.Tags...)...),
		extra: resourcestore.SearchText(res.OriginalFilename, res.Category, res.SemesterTag),
	}
}

func (r *Repository) GetResource(ctx context.Context, id uuid.UUID) (*resourcestore.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1`

	res, err := scanResource(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, r.handlePostgresError("get resource", err)
	}
	return res, nil
}

func (r *Repository) ListResources(ctx context.Context, q resourcestore.ResourceQuery) ([]*resourcestore.Resource, int64, error) {
	where, args := buildListWhereClause(q)

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM resources WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, r.handlePostgresError("count resources", err)
	}

	orderBy := "created_at DESC, id DESC"
	switch q.Sort {
	case resourcestore.SortOldest:
		orderBy = "created_at ASC, id ASC"
	case resourcestore.SortDownloads:
		orderBy = "download_count DESC, created_at DESC, id DESC"
	case resourcestore.SortRelevance:
		if len(q.Terms) > 0 {
			// the tsquery is always the last where argument
			orderBy = fmt.Sprintf("ts_rank(search_vector, to_tsquery('simple', $%d)) DESC, created_at DESC, id DESC", len(args))
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = resourcestore.DefaultPageSize
	}
	query := fmt.Sprintf(`SELECT %s FROM resources WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		resourceColumns, where, orderBy, len(args)+1, len(args)+2)
	args = append(args, limit, q.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, r.handlePostgresError("list resources", err)
	}
	defer rows.Close()

	items := make([]*resourcestore.Resource, 0, limit)
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, 0, r.handlePostgresError("scan resource", err)
		}
		items = append(items, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, r.handlePostgresError("list resources", err)
	}
	return items, total, nil
}

// buildListWhereClause builds the WHERE clause for list queries. When search
// terms are present the tsquery is appended as the last argument.
func buildListWhereClause(q resourcestore.ResourceQuery) (string, []interface{}) {
	where := "1=1"
	args := []interface{}{}

	if q.SemesterTag != "" {
		args = append(args, q.SemesterTag)
		where += fmt.Sprintf(" AND semester_tag = $%d", len(args))
	}
	if q.Category != "" {
		args = append(args, q.Category)
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if tsq := TextQuery(q.Terms); tsq != "" {
		args = append(args, tsq)
		where += fmt.Sprintf(" AND search_vector @@ to_tsquery('simple', $%d)", len(args))
	}
	return where, args
}

// TextQuery joins search terms into an OR tsquery. Terms are expected to be
// tokens of letters and digits; anything else is dropped.
func TextQuery(terms []string) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.Map(func(r rune) rune {
			if r == '\'' || r == '\\' || r == ':' || r == '&' || r == '|' || r == '!' || r == '(' || r == ')' || r == ' ' {
				return -1
			}
			return r
		}, t)
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " | ")
}

func (r *Repository) IncrementDownloadCount(ctx context.Context, id uuid.UUID) (int64, error) {
	query := `
		UPDATE resources
		SET download_count = download_count + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING download_count`

	var count int64
	if err := r.db.QueryRow(ctx, query, id).Scan(&count); err != nil {
		return 0, r.handlePostgresError("increment download count", err)
	}
	return count, nil
}

func (r *Repository) DeleteResource(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete resource", err)
	}
	if tag.RowsAffected() == 0 {
		return resourcestore.ErrResourceNotFound
	}
	return nil
}
