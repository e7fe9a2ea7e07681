package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"tg-clicker/internal/config"
)

func isolate(t *testing.T) string {
	dir := t.TempDir()
	t.Setenv("CLICKER_ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("CLICKER_CONFIG", "")
	return dir
}

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default values", t, func() {
		cfg := config.New()

		convey.Convey("Then it should use the memory store on :3000", func() {
			convey.So(cfg.Server.Address, convey.ShouldEqual, ":3000")
			convey.So(cfg.Server.Timeout, convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.Storage.Driver, convey.ShouldEqual, config.DriverMemory)
			convey.So(cfg.Auth.Required, convey.ShouldBeFalse)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Load_Defaults(t *testing.T) {
	convey.Convey("Given no files and no environment overrides", t, func() {
		isolate(t)

		cfg, err := config.Load(context.Background())

		convey.Convey("Then defaults are returned", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Storage.Driver, convey.ShouldEqual, config.DriverMemory)
		})
	})
}

func TestConfig_Load_Env(t *testing.T) {
	convey.Convey("Given CLICKER_ environment variables", t, func() {
		isolate(t)
		t.Setenv("CLICKER_SERVER_ADDRESS", ":9090")
		t.Setenv("CLICKER_SERVER_TIMEOUT", "2s")
		t.Setenv("CLICKER_STORAGE_DRIVER", "postgres")
		t.Setenv("CLICKER_STORAGE_POSTGRES_CONN", "postgres://localhost/clicker")
		t.Setenv("CLICKER_STORAGE_REDIS_DB", "3")

		cfg, err := config.Load(context.Background())

		convey.Convey("Then nested keys are filled from them", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Server.Address, convey.ShouldEqual, ":9090")
			convey.So(cfg.Server.Timeout, convey.ShouldEqual, 2*time.Second)
			convey.So(cfg.Storage.Driver, convey.ShouldEqual, config.DriverPostgres)
			convey.So(cfg.Storage.PostgresConn, convey.ShouldEqual, "postgres://localhost/clicker")
			convey.So(cfg.Storage.RedisDB, convey.ShouldEqual, 3)
		})
	})
}

func TestConfig_Load_YAMLAndEnv(t *testing.T) {
	convey.Convey("Given a YAML file and an environment override", t, func() {
		dir := isolate(t)
		path := filepath.Join(dir, "config.yaml")
		yaml := "server:\n  address: \":8081\"\nstorage:\n  driver: file\n  file_dir: /tmp/players\n"
		convey.So(os.WriteFile(path, []byte(yaml), 0o600), convey.ShouldBeNil)
		t.Setenv("CLICKER_CONFIG", path)
		t.Setenv("CLICKER_SERVER_ADDRESS", ":8082")

		cfg, err := config.Load(context.Background())

		convey.Convey("Then the environment wins over the file", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Server.Address, convey.ShouldEqual, ":8082")
			convey.So(cfg.Storage.Driver, convey.ShouldEqual, config.DriverFile)
			convey.So(cfg.Storage.FileDir, convey.ShouldEqual, "/tmp/players")
		})
	})
}

func TestConfig_Load_DotEnv(t *testing.T) {
	convey.Convey("Given a .env file", t, func() {
		dir := isolate(t)
		envFile := filepath.Join(dir, "test.env")
		convey.So(os.WriteFile(envFile, []byte("CLICKER_STORAGE_MONGO_DATABASE=from_dotenv\n"), 0o600), convey.ShouldBeNil)
		t.Setenv("CLICKER_ENV_FILE", envFile)
		t.Cleanup(func() { _ = os.Unsetenv("CLICKER_STORAGE_MONGO_DATABASE") })

		cfg, err := config.Load(context.Background())

		convey.Convey("Then its variables are picked up", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Storage.MongoDatabase, convey.ShouldEqual, "from_dotenv")
		})
	})
}

func TestConfig_Load_UnknownDriver(t *testing.T) {
	convey.Convey("Given an unknown storage driver", t, func() {
		isolate(t)
		t.Setenv("CLICKER_STORAGE_DRIVER", "cassandra")

		_, err := config.Load(context.Background())

		convey.Convey("Then loading fails as invalid config", func() {
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestConfig_Load_RequiredAuthWithoutToken(t *testing.T) {
	convey.Convey("Given required auth without a bot token", t, func() {
		isolate(t)
		t.Setenv("CLICKER_AUTH_REQUIRED", "true")

		_, err := config.Load(context.Background())

		convey.Convey("Then loading fails as invalid config", func() {
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
