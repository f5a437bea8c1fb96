package router_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"io"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/routekit/pkg/router"
)

// writeSelfSigned writes a localhost key/certificate pair into dir.
func writeSelfSigned(dir string) (keyFile, certFile string) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	Expect(err).NotTo(HaveOccurred())

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	Expect(err).NotTo(HaveOccurred())

	keyDER, err := x509.MarshalECPrivateKey(key)
	Expect(err).NotTo(HaveOccurred())

	keyFile = filepath.Join(dir, "key.pem")
	certFile = filepath.Join(dir, "cert.pem")
	Expect(os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0600)).To(Succeed())
	Expect(os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0644)).To(Succeed())
	return keyFile, certFile
}

var _ = Describe("App lifecycle", func() {
	var (
		app     *router.App
		tempDir string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "app-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if app != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = app.Shutdown(ctx)
		}
		os.RemoveAll(tempDir)
	})

	Context("plain transport", func() {
		BeforeEach(func() {
			var err error
			app, err = router.New()
			Expect(err).NotTo(HaveOccurred())
			app.AddRoute(router.NewRoute("/hello").Get(ok("hello")))
		})

		It("should start unbound", func() {
			Expect(app.Listening()).To(BeFalse())
			Expect(app.Addr()).To(BeNil())
			Expect(app.Wait()).To(Succeed())
		})

		It("should serve requests once listening", func() {
			Expect(app.ListenAddr("127.0.0.1:0")).To(Succeed())
			Expect(app.Listening()).To(BeTrue())

			resp, err := http.Get("http://" + app.Addr().String() + "/HELLO")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(body)).To(Equal("hello"))
		})

		It("should bind only once when listening twice", func() {
			Expect(app.ListenAddr("127.0.0.1:0")).To(Succeed())
			first := app.Addr().String()

			Expect(app.ListenAddr("127.0.0.1:0")).To(Succeed())
			Expect(app.Addr().String()).To(Equal(first))
		})

		It("should accept routes added after listening", func() {
			Expect(app.ListenAddr("127.0.0.1:0")).To(Succeed())
			app.AddRoute(router.NewRoute("/late").Get(ok("late")))

			resp, err := http.Get("http://" + app.Addr().String() + "/late")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(Equal("late"))
		})

		It("should report a bind failure without changing state", func() {
			occupied, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())
			defer occupied.Close()

			Expect(app.ListenAddr(occupied.Addr().String())).NotTo(Succeed())
			Expect(app.Listening()).To(BeFalse())
		})

		It("should return to unbound after shutdown", func() {
			Expect(app.ListenAddr("127.0.0.1:0")).To(Succeed())
			Expect(app.Shutdown(context.Background())).To(Succeed())
			Expect(app.Listening()).To(BeFalse())
			Expect(app.Wait()).To(Succeed())
		})

		It("should free the address before reporting unbound", func() {
			Expect(app.ListenAddr("127.0.0.1:0")).To(Succeed())
			addr := app.Addr().String()

			Expect(app.Shutdown(context.Background())).To(Succeed())
			Expect(app.ListenAddr(addr)).To(Succeed())
			Expect(app.Addr().String()).To(Equal(addr))
		})

		It("should stay listening until a concurrent shutdown has closed the listener", func() {
			Expect(app.ListenAddr("127.0.0.1:0")).To(Succeed())
			addr := app.Addr().String()

			go func() {
				defer GinkgoRecover()
				Expect(app.Shutdown(context.Background())).To(Succeed())
			}()

			Eventually(func() error {
				if app.Listening() {
					return errors.New("still listening")
				}
				return app.ListenAddr(addr)
			}).Should(Succeed())
			Expect(app.Listening()).To(BeTrue())
		})

		It("should be unbound once the serve loop has ended", func() {
			Expect(app.ListenAddr("127.0.0.1:0")).To(Succeed())

			go func() {
				defer GinkgoRecover()
				Expect(app.Shutdown(context.Background())).To(Succeed())
			}()

			Expect(app.Wait()).To(Succeed())
			Expect(app.Listening()).To(BeFalse())
			Expect(app.Addr()).To(BeNil())
		})

		It("should pass requests through the wrapper", func() {
			wrapped, err := router.New(router.WithWrapper(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("X-Wrapped", "yes")
					next.ServeHTTP(w, r)
				})
			}))
			Expect(err).NotTo(HaveOccurred())
			wrapped.AddRoute(router.NewRoute("/").Get(ok("root")))
			Expect(wrapped.ListenAddr("127.0.0.1:0")).To(Succeed())
			defer wrapped.Shutdown(context.Background())

			resp, err := http.Get("http://" + wrapped.Addr().String() + "/")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.Header.Get("X-Wrapped")).To(Equal("yes"))
		})
	})

	Context("encrypted transport", func() {
		It("should refuse to listen without credentials and allow a plain retry", func() {
			var err error
			app, err = router.New(router.WithTLS("", ""))
			Expect(err).NotTo(HaveOccurred())

			Expect(app.ListenAddr("127.0.0.1:0")).To(MatchError(router.ErrMissingCredentials))
			Expect(app.Listening()).To(BeFalse())
			Expect(app.Addr()).To(BeNil())

			app, err = router.New()
			Expect(err).NotTo(HaveOccurred())
			Expect(app.ListenAddr("127.0.0.1:0")).To(Succeed())
			Expect(app.Listening()).To(BeTrue())
		})

		It("should refuse to listen with only a key", func() {
			var err error
			app, err = router.New(router.WithTLS("key.pem", ""))
			Expect(err).NotTo(HaveOccurred())
			Expect(app.ListenAddr("127.0.0.1:0")).To(MatchError(router.ErrMissingCredentials))
		})

		It("should report unreadable credentials", func() {
			var err error
			app, err = router.New(router.WithTLS(filepath.Join(tempDir, "nope.key"), filepath.Join(tempDir, "nope.crt")))
			Expect(err).NotTo(HaveOccurred())

			err = app.ListenAddr("127.0.0.1:0")
			var ce *router.CredentialError
			Expect(err).To(BeAssignableToTypeOf(ce))
			Expect(err).To(MatchError(os.ErrNotExist))
			Expect(app.Listening()).To(BeFalse())
		})

		It("should report credentials that do not parse", func() {
			keyFile := filepath.Join(tempDir, "bad.key")
			certFile := filepath.Join(tempDir, "bad.crt")
			Expect(os.WriteFile(keyFile, []byte("not a key"), 0600)).To(Succeed())
			Expect(os.WriteFile(certFile, []byte("not a cert"), 0600)).To(Succeed())

			var err error
			app, err = router.New(router.WithTLS(keyFile, certFile))
			Expect(err).NotTo(HaveOccurred())
			Expect(app.ListenAddr("127.0.0.1:0")).To(HaveOccurred())
			Expect(app.Listening()).To(BeFalse())
		})

		It("should serve HTTPS with loaded credentials", func() {
			keyFile, certFile := writeSelfSigned(tempDir)

			var err error
			app, err = router.New(router.WithTLS(keyFile, certFile))
			Expect(err).NotTo(HaveOccurred())
			app.AddRoute(router.NewRoute("/secure").Get(ok("secret")))
			Expect(app.ListenAddr("127.0.0.1:0")).To(Succeed())

			client := &http.Client{Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			}}
			resp, err := client.Get("https://" + app.Addr().String() + "/secure")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(Equal("secret"))
			Expect(resp.TLS).NotTo(BeNil())
		})
	})
})
