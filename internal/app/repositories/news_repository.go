package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/db"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
	"github.com/yigit/studentportal/internal/pkg/logger"
)

// ErrGateClosed is returned when a post exists but has the requested kind of
// interaction switched off.
var ErrGateClosed = errors.New("interaction disabled on this post")

var newsColumns = []string{
	"id", "title", "content", "department", "poster_id",
	"allow_likes", "allow_comments", "allow_reactions", "created_at", "updated_at",
}

const toggleLikeSQL = `
WITH post AS (
	SELECT id, allow_likes FROM news_posts WHERE id = $1
), del AS (
	DELETE FROM news_post_likes l
	USING post
	WHERE post.allow_likes AND l.post_id = post.id AND l.user_id = $2
	RETURNING l.post_id
), ins AS (
	INSERT INTO news_post_likes (post_id, user_id)
	SELECT post.id, $2 FROM post
	WHERE post.allow_likes AND NOT EXISTS (SELECT 1 FROM del)
	ON CONFLICT DO NOTHING
	RETURNING post_id
)
SELECT (SELECT allow_likes FROM post), (SELECT COUNT(*) FROM del)`

const addCommentSQL = `
WITH post AS (
	SELECT id, allow_comments FROM news_posts WHERE id = $1
), ins AS (
	INSERT INTO news_post_comments (post_id, author_id, content)
	SELECT post.id, $2, $3 FROM post
	WHERE post.allow_comments
	RETURNING id, created_at
)
SELECT (SELECT allow_comments FROM post), ins.id, ins.created_at
FROM (SELECT 1) AS one
LEFT JOIN ins ON TRUE`

const upsertReactionSQL = `
WITH post AS (
	SELECT id, allow_reactions FROM news_posts WHERE id = $1
), up AS (
	INSERT INTO news_post_reactions (post_id, user_id, type)
	SELECT post.id, $2, $3 FROM post
	WHERE post.allow_reactions
	ON CONFLICT (post_id, user_id) DO UPDATE SET type = EXCLUDED.type, updated_at = NOW()
	RETURNING post_id
)
SELECT (SELECT allow_reactions FROM post), (SELECT COUNT(*) FROM up)`

// NewsRepository persists news posts and their engagement tables
type NewsRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewNewsRepository creates a new NewsRepository
func NewNewsRepository(db *pgxpool.Pool) *NewsRepository {
	return &NewsRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func postNotFound() error {
	return apperrors.NewNotFoundError(apperrors.ErrNewsPostNotFound, "news post not found")
}

// gateResult turns the nullable gate column read inside a statement into an
// error: NULL means no such post, false means the gate is closed.
func gateResult(allowed *bool) error {
	if allowed == nil {
		return postNotFound()
	}
	if !*allowed {
		return ErrGateClosed
	}
	return nil
}

func scanPost(row pgx.Row) (*models.NewsPost, error) {
	var p models.NewsPost
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.Department, &p.PosterID,
		&p.AllowLikes, &p.AllowComments, &p.AllowReactions, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Images = []models.NewsImage{}
	return &p, nil
}

// Create inserts post and its images in one transaction
func (r *NewsRepository) Create(ctx context.Context, post *models.NewsPost) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		query, args, err := r.sb.Insert("news_posts").
			Columns("title", "content", "department", "poster_id", "allow_likes", "allow_comments", "allow_reactions").
			Values(post.Title, post.Content, post.Department, post.PosterID, post.AllowLikes, post.AllowComments, post.AllowReactions).
			Suffix("RETURNING id, created_at, updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build create post query: %w", err)
		}
		if err := tx.QueryRow(ctx, query, args...).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt); err != nil {
			logger.Error().Err(err).Int64("posterID", post.PosterID).Msg("Error creating news post")
			return fmt.Errorf("failed to create news post: %w", err)
		}

		return insertImages(ctx, tx, post.ID, post.Images)
	})
}

func insertImages(ctx context.Context, tx pgx.Tx, postID int64, images []models.NewsImage) error {
	for i := range images {
		images[i].PostID = postID
		err := tx.QueryRow(ctx, `
			INSERT INTO news_post_images (post_id, file_path, file_url)
			VALUES ($1, $2, $3)
			RETURNING id`,
			postID, images[i].FilePath, images[i].FileURL).Scan(&images[i].ID)
		if err != nil {
			return fmt.Errorf("failed to attach image: %w", err)
		}
	}
	return nil
}

// GetByID retrieves a post with its images
func (r *NewsRepository) GetByID(ctx context.Context, id int64) (*models.NewsPost, error) {
	query, args, err := r.sb.Select(newsColumns...).From("news_posts").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get post query: %w", err)
	}

	post, err := scanPost(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, postNotFound()
		}
		return nil, fmt.Errorf("failed to get news post: %w", err)
	}

	if err := r.loadImages(ctx, []*models.NewsPost{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// List returns one page of posts, newest first, optionally for one department.
// Posts without a department are visible in every department's feed.
func (r *NewsRepository) List(ctx context.Context, department string, offset, limit uint64) ([]*models.NewsPost, int64, error) {
	where := squirrel.And{}
	if department != "" {
		where = append(where, squirrel.Or{
			squirrel.Eq{"department": department},
			squirrel.Eq{"department": nil},
		})
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("news_posts").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count posts query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("Error counting news posts")
		return nil, 0, fmt.Errorf("failed to count news posts: %w", err)
	}
	if total == 0 {
		return []*models.NewsPost{}, 0, nil
	}

	query, args, err := r.sb.Select(newsColumns...).
		From("news_posts").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Offset(offset).
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list posts query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list news posts: %w", err)
	}
	defer rows.Close()

	posts := []*models.NewsPost{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan news post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.loadImages(ctx, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *NewsRepository) loadImages(ctx context.Context, posts []*models.NewsPost) error {
	if len(posts) == 0 {
		return nil
	}
	byID := make(map[int64]*models.NewsPost, len(posts))
	ids := make([]int64, 0, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, post_id, file_path, file_url
		FROM news_post_images
		WHERE post_id = ANY($1)
		ORDER BY id`, ids)
	if err != nil {
		return fmt.Errorf("failed to load post images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img models.NewsImage
		if err := rows.Scan(&img.ID, &img.PostID, &img.FilePath, &img.FileURL); err != nil {
			return err
		}
		byID[img.PostID].Images = append(byID[img.PostID].Images, img)
	}
	return rows.Err()
}

// Update replaces the editable fields, drops the images in removeIDs and
// attaches post.Images that have no ID yet. It returns the dropped images so
// their files can be removed.
func (r *NewsRepository) Update(ctx context.Context, post *models.NewsPost, removeIDs []int64) ([]models.NewsImage, error) {
	var removed []models.NewsImage
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE news_posts
			SET title = $1, content = $2, department = $3,
			    allow_likes = $4, allow_comments = $5, allow_reactions = $6, updated_at = NOW()
			WHERE id = $7
			RETURNING updated_at`,
			post.Title, post.Content, post.Department,
			post.AllowLikes, post.AllowComments, post.AllowReactions, post.ID).Scan(&post.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return postNotFound()
			}
			return fmt.Errorf("failed to update news post: %w", err)
		}

		if len(removeIDs) > 0 {
			rows, err := tx.Query(ctx, `
				DELETE FROM news_post_images
				WHERE post_id = $1 AND id = ANY($2)
				RETURNING id, post_id, file_path, file_url`,
				post.ID, removeIDs)
			if err != nil {
				return fmt.Errorf("failed to remove post images: %w", err)
			}
			removed, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.NewsImage, error) {
				var img models.NewsImage
				err := row.Scan(&img.ID, &img.PostID, &img.FilePath, &img.FileURL)
				return img, err
			})
			if err != nil {
				return fmt.Errorf("failed to read removed images: %w", err)
			}
		}

		var added []models.NewsImage
		kept := post.Images[:0]
		for _, img := range post.Images {
			if img.ID == 0 {
				added = append(added, img)
				continue
			}
			if !containsID(removeIDs, img.ID) {
				kept = append(kept, img)
			}
		}
		if err := insertImages(ctx, tx, post.ID, added); err != nil {
			return err
		}
		post.Images = append(kept, added...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// Delete removes a post; engagement rows go with it through ON DELETE CASCADE.
// The post's images are returned so their files can be removed.
func (r *NewsRepository) Delete(ctx context.Context, id int64) ([]models.NewsImage, error) {
	var images []models.NewsImage
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, post_id, file_path, file_url
			FROM news_post_images
			WHERE post_id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to read post images: %w", err)
		}
		images, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.NewsImage, error) {
			var img models.NewsImage
			err := row.Scan(&img.ID, &img.PostID, &img.FilePath, &img.FileURL)
			return img, err
		})
		if err != nil {
			return fmt.Errorf("failed to read post images: %w", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM news_posts WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete news post: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return postNotFound()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}

// ToggleLike removes the user's like when present and adds it otherwise, in
// one statement that also checks the gate.
func (r *NewsRepository) ToggleLike(ctx context.Context, postID, userID int64) (liked bool, err error) {
	var allowed *bool
	var deleted int64
	if err := r.db.QueryRow(ctx, toggleLikeSQL, postID, userID).Scan(&allowed, &deleted); err != nil {
		return false, fmt.Errorf("failed to toggle like: %w", err)
	}
	if err := gateResult(allowed); err != nil {
		return false, err
	}
	return deleted == 0, nil
}

// AddComment appends a comment when the post accepts comments
func (r *NewsRepository) AddComment(ctx context.Context, postID, authorID int64, content string) (*models.NewsComment, error) {
	var allowed *bool
	var id *int64
	var createdAt *time.Time
	if err := r.db.QueryRow(ctx, addCommentSQL, postID, authorID, content).Scan(&allowed, &id, &createdAt); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	if err := gateResult(allowed); err != nil {
		return nil, err
	}
	if id == nil || createdAt == nil {
		return nil, fmt.Errorf("comment insert returned no row for post %d", postID)
	}
	return &models.NewsComment{ID: *id, PostID: postID, AuthorID: authorID, Content: content, CreatedAt: *createdAt}, nil
}

// UpsertReaction sets the user's single reaction on a post
func (r *NewsRepository) UpsertReaction(ctx context.Context, postID, userID int64, reaction models.ReactionType) error {
	var allowed *bool
	var n int64
	if err := r.db.QueryRow(ctx, upsertReactionSQL, postID, userID, reaction).Scan(&allowed, &n); err != nil {
		return fmt.Errorf("failed to upsert reaction: %w", err)
	}
	return gateResult(allowed)
}

// GetEngagement loads the full like, comment and reaction state of one post
func (r *NewsRepository) GetEngagement(ctx context.Context, postID int64) (*models.Engagement, error) {
	eng := &models.Engagement{
		LikedBy:   []int64{},
		Comments:  []models.NewsComment{},
		Reactions: []models.NewsReaction{},
	}

	rows, err := r.db.Query(ctx, `
		SELECT user_id FROM news_post_likes
		WHERE post_id = $1
		ORDER BY created_at, user_id`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load likes: %w", err)
	}
	eng.LikedBy, err = pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to read likes: %w", err)
	}

	rows, err = r.db.Query(ctx, `
		SELECT c.id, c.post_id, c.author_id, COALESCE(u.first_name || ' ' || u.last_name, ''), c.content, c.created_at
		FROM news_post_comments c
		LEFT JOIN users u ON u.id = c.author_id
		WHERE c.post_id = $1
		ORDER BY c.created_at, c.id`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}
	eng.Comments, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.NewsComment, error) {
		var c models.NewsComment
		err := row.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Author, &c.Content, &c.CreatedAt)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read comments: %w", err)
	}

	rows, err = r.db.Query(ctx, `
		SELECT post_id, user_id, type FROM news_post_reactions
		WHERE post_id = $1
		ORDER BY user_id`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reactions: %w", err)
	}
	eng.Reactions, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.NewsReaction, error) {
		var re models.NewsReaction
		err := row.Scan(&re.PostID, &re.UserID, &re.Type)
		return re, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read reactions: %w", err)
	}

	eng.LikeCount = len(eng.LikedBy)
	eng.CommentCount = len(eng.Comments)
	eng.ReactionCounts = models.CountReactions(eng.Reactions)
	return eng, nil
}

// CountEngagement returns like, comment and per-type reaction counts for a
// batch of posts. Detail slices are left empty.
func (r *NewsRepository) CountEngagement(ctx context.Context, postIDs []int64) (map[int64]*models.Engagement, error) {
	out := make(map[int64]*models.Engagement, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	for _, id := range postIDs {
		out[id] = &models.Engagement{ReactionCounts: models.CountReactions(nil)}
	}

	rows, err := r.db.Query(ctx, `
		SELECT p.id,
		       (SELECT COUNT(*) FROM news_post_likes l WHERE l.post_id = p.id),
		       (SELECT COUNT(*) FROM news_post_comments c WHERE c.post_id = p.id)
		FROM unnest($1::bigint[]) AS p(id)`, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count engagement: %w", err)
	}
	for rows.Next() {
		var id int64
		var likes, comments int
		if err := rows.Scan(&id, &likes, &comments); err != nil {
			rows.Close()
			return nil, err
		}
		out[id].LikeCount = likes
		out[id].CommentCount = comments
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Query(ctx, `
		SELECT post_id, type, COUNT(*)
		FROM news_post_reactions
		WHERE post_id = ANY($1)
		GROUP BY post_id, type`, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count reactions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var t models.ReactionType
		var n int
		if err := rows.Scan(&id, &t, &n); err != nil {
			return nil, err
		}
		out[id].ReactionCounts[t] = n
	}
	return out, rows.Err()
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
