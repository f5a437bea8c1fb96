package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/routekit/config"
)

var _ = Describe("Config", func() {
	var tempDir string

	writeConfig := func(content string) string {
		configPath := filepath.Join(tempDir, "config.yaml")
		err := os.WriteFile(configPath, []byte(content), 0644)
		Expect(err).NotTo(HaveOccurred())
		return configPath
	}

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("TLS_ENABLED")
	})

	Describe("LoadFrom", func() {
		Context("with valid config file", func() {
			var configPath string

			BeforeEach(func() {
				configPath = writeConfig(`
server:
  host: "localhost"
  port: 9090
  environment: "staging"

tls:
  enabled: true
  key_file: "certs/key.pem"
  cert_file: "certs/cert.pem"

favicon:
  file: "static/favicon.png"

logging:
  level: "debug"

metrics:
  enabled: true
  buffer_size: 50
`)
			})

			It("should load configuration successfully", func() {
				cfg, err := config.LoadFrom(viper.New(), configPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg).NotTo(BeNil())
			})

			It("should parse the server section", func() {
				cfg, _ := config.LoadFrom(viper.New(), configPath)
				Expect(cfg.Server.Host).To(Equal("localhost"))
				Expect(cfg.Server.Port).To(Equal(9090))
				Expect(cfg.Server.Environment).To(Equal(config.EnvStaging))
			})

			It("should parse tls credentials", func() {
				cfg, _ := config.LoadFrom(viper.New(), configPath)
				Expect(cfg.TLS.Enabled).To(BeTrue())
				Expect(cfg.TLS.KeyFile).To(Equal("certs/key.pem"))
				Expect(cfg.TLS.CertFile).To(Equal("certs/cert.pem"))
			})

			It("should parse favicon, logging and metrics", func() {
				cfg, _ := config.LoadFrom(viper.New(), configPath)
				Expect(cfg.Favicon.File).To(Equal("static/favicon.png"))
				Expect(cfg.Logging.Level).To(Equal(config.LogLevelDebug))
				Expect(cfg.Metrics.BufferSize).To(Equal(50))
			})

			It("should let environment variables override the file", func() {
				os.Setenv("SERVER_PORT", "7070")
				cfg, err := config.LoadFrom(viper.New(), configPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Server.Port).To(Equal(7070))
			})
		})

		Context("with an explicit file that does not exist", func() {
			It("should fail", func() {
				cfg, err := config.LoadFrom(viper.New(), filepath.Join(tempDir, "missing.yaml"))
				Expect(err).To(HaveOccurred())
				Expect(cfg).To(BeNil())
			})
		})

		Context("with invalid settings", func() {
			It("should reject tls without credentials", func() {
				configPath := writeConfig("tls:\n  enabled: true\n")
				cfg, err := config.LoadFrom(viper.New(), configPath)
				Expect(err).To(HaveOccurred())
				Expect(cfg).To(BeNil())
			})

			It("should reject unsupported favicon types", func() {
				configPath := writeConfig("favicon:\n  file: \"icon.bmp\"\n")
				_, err := config.LoadFrom(viper.New(), configPath)
				Expect(err).To(HaveOccurred())
			})

			It("should reject favicon extensions in the wrong case", func() {
				configPath := writeConfig("favicon:\n  file: \"icon.ICO\"\n")
				_, err := config.LoadFrom(viper.New(), configPath)
				Expect(err).To(HaveOccurred())
			})

			It("should reject ports out of range", func() {
				configPath := writeConfig("server:\n  port: 70000\n")
				_, err := config.LoadFrom(viper.New(), configPath)
				Expect(err).To(HaveOccurred())
			})

			It("should reject unknown environments", func() {
				configPath := writeConfig("server:\n  environment: \"qa\"\n")
				_, err := config.LoadFrom(viper.New(), configPath)
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Load", func() {
		var wd string

		BeforeEach(func() {
			var err error
			wd, err = os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(tempDir)).To(Succeed())
		})

		AfterEach(func() {
			Expect(os.Chdir(wd)).To(Succeed())
		})

		It("should use defaults when config file missing", func() {
			cfg, err := config.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Server.Port).To(Equal(8080))
			Expect(cfg.Server.Environment).To(Equal(config.EnvDev))
			Expect(cfg.TLS.Enabled).To(BeFalse())
			Expect(cfg.Metrics.Enabled).To(BeTrue())
			Expect(cfg.Metrics.BufferSize).To(Equal(1000))
		})

		It("should find config.yaml in the working directory", func() {
			writeConfig("server:\n  port: 8181\n")
			cfg, err := config.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Server.Port).To(Equal(8181))
		})
	})

	Describe("Validate", func() {
		It("should accept tls with both files", func() {
			cfg := &config.Config{
				Server:  config.ServerConfig{Port: 443, Environment: config.EnvProd},
				TLS:     config.TLSConfig{Enabled: true, KeyFile: "k", CertFile: "c"},
				Logging: config.LoggingConfig{Level: config.LogLevelInfo},
			}
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should reject tls with only a key", func() {
			cfg := &config.Config{
				Server:  config.ServerConfig{Port: 443, Environment: config.EnvProd},
				TLS:     config.TLSConfig{Enabled: true, KeyFile: "k"},
				Logging: config.LoggingConfig{Level: config.LogLevelInfo},
			}
			Expect(cfg.Validate()).NotTo(Succeed())
		})
	})
})
