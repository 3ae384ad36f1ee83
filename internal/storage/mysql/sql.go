package mysql

// Statements are kept to the subset of SQL shared by MySQL and SQLite so the same
// stores run against the in-memory test database.

var schema = []string{
	`CREATE TABLE IF NOT EXISTS owners (
  id      VARCHAR(64) NOT NULL PRIMARY KEY,
  version BIGINT      NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS listings (
  id          VARCHAR(64)   NOT NULL PRIMARY KEY,
  owner_id    VARCHAR(64)   NOT NULL,
  title       VARCHAR(255)  NOT NULL,
  description TEXT          NOT NULL,
  address     VARCHAR(512)  NOT NULL,
  lat         DOUBLE        NOT NULL,
  lng         DOUBLE        NOT NULL,
  url         VARCHAR(1024) NOT NULL,
  image       VARCHAR(1024) NOT NULL,
  CONSTRAINT fk_listings_owner FOREIGN KEY (owner_id) REFERENCES owners (id)
)`,
	// No FK to listings: the listing row is removed before its reference inside the
	// delete transaction.
	`CREATE TABLE IF NOT EXISTS owner_listings (
  owner_id   VARCHAR(64) NOT NULL,
  listing_id VARCHAR(64) NOT NULL,
  PRIMARY KEY (owner_id, listing_id),
  CONSTRAINT fk_owner_listings_owner FOREIGN KEY (owner_id) REFERENCES owners (id)
)`,
}

const listingColumns = `id, owner_id, title, description, address, lat, lng, url, image`

const getListingSQL = `SELECT ` + listingColumns + ` FROM listings WHERE id = ?`

const listListingsByOwnerSQL = `SELECT ` + listingColumns + ` FROM listings WHERE owner_id = ? ORDER BY id`

const insertListingSQL = `
INSERT INTO listings
  (id, owner_id, title, description, address, lat, lng, url, image)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateListingSQL = `UPDATE listings SET title = ?, description = ? WHERE id = ?`

const deleteListingSQL = `DELETE FROM listings WHERE id = ?`

const getOwnerSQL = `SELECT id, version FROM owners WHERE id = ?`

const listOwnerRefsSQL = `SELECT listing_id FROM owner_listings WHERE owner_id = ? ORDER BY listing_id`

const insertOwnerSQL = `INSERT INTO owners (id, version) VALUES (?, 0)`

const insertOwnerRefSQL = `INSERT INTO owner_listings (owner_id, listing_id) VALUES (?, ?)`

const deleteOwnerRefSQL = `DELETE FROM owner_listings WHERE owner_id = ? AND listing_id = ?`

// Bumping the version takes the owner row lock, so Create/Delete transactions for
// the same owner run one after the other.
const saveOwnerSQL = `UPDATE owners SET version = version + 1 WHERE id = ?`
