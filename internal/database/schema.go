// Package database manages the PostgreSQL connection pool and
// bootstraps the schema on startup.
package database

// Schema contains the SQL statements for the blog database. Every
// statement is idempotent so it can run on each startup.
const Schema = `
-- users: Identities. Uniqueness of username and email is checked by the
-- application before writes; these constraints are the final backstop.
CREATE TABLE IF NOT EXISTS users (
    id              UUID PRIMARY KEY,
    username        VARCHAR(20) NOT NULL,
    email           VARCHAR(255) NOT NULL,
    first_name      VARCHAR(20) NOT NULL,
    last_name       VARCHAR(20) NOT NULL,
    password        VARCHAR(255) NOT NULL,
    bio             TEXT NOT NULL DEFAULT '',
    date_of_birth   DATE,
    profile_pic_url TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT users_username_key UNIQUE (username),
    CONSTRAINT users_email_key UNIQUE (email)
);

-- posts: comment_ids is the ordered reference set of the post's comments.
-- It is kept consistent with comments.post_id by the application, not by
-- a foreign key.
CREATE TABLE IF NOT EXISTS posts (
    id            UUID PRIMARY KEY,
    title         VARCHAR(32) NOT NULL,
    content       TEXT NOT NULL,
    author_id     UUID NOT NULL,
    cover_img_url TEXT NOT NULL DEFAULT '',
    comment_ids   UUID[] NOT NULL DEFAULT '{}',
    is_published  BOOLEAN NOT NULL DEFAULT FALSE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_id);

CREATE TABLE IF NOT EXISTS comments (
    id         UUID PRIMARY KEY,
    content    TEXT NOT NULL,
    author_id  UUID NOT NULL,
    post_id    UUID NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_comments_post ON comments(post_id);
CREATE INDEX IF NOT EXISTS idx_comments_author ON comments(author_id);

-- sessions: Server-held sessions, used only when authMode is "session".
CREATE TABLE IF NOT EXISTS sessions (
    id         VARCHAR(64) PRIMARY KEY,
    user_id    UUID NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMPTZ NOT NULL,
    revoked_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- activity_events: Sequenced activity feed. The BIGSERIAL seq column
-- provides a monotonically increasing cursor for replay.
CREATE TABLE IF NOT EXISTS activity_events (
    seq        BIGSERIAL PRIMARY KEY,
    event_type VARCHAR(40) NOT NULL,
    subject_id UUID NOT NULL,
    actor_id   UUID,
    payload    JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
