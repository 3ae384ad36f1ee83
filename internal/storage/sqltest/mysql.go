//go:build integration

package sqltest

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	mysqlrepo "sneaker_hub/internal/storage/mysql"
)

// NewMySQL starts a disposable MySQL container and returns a database with the
// schema applied. Docker picks a free host port.
func NewMySQL(t *testing.T) *sqlx.DB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=sneakers",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/sneakers?parseTime=true&charset=utf8mb4&loc=UTC",
		resource.GetPort("3306/tcp"))

	var raw *sql.DB
	if err := pool.Retry(func() error {
		var e error
		raw, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return raw.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}

	db := mysqlrepo.Open(raw, "mysql")
	t.Cleanup(func() { _ = db.Close() })
	if err := mysqlrepo.EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return db
}
