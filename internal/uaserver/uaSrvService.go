package uaserver

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/amine-amaach/uafacade/internal/component"
	"github.com/awcullen/opcua/server"
	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// NamespaceURI is the namespace of the demo server's own nodes.
const NamespaceURI = "http://github.com/amine-amaach/uafacade/demo"

const appName = "UaFacadeDemoServer"

// UaSrvService is the demo OPC-UA server hosting simulated limit alarms.
type UaSrvService struct {
	server *server.Server
	nsi    uint16
	folder ua.NodeID
	log    *logrus.Logger
}

func (uaServer *UaSrvService) GetServer() *server.Server { return uaServer.server }

// NamespaceIndex is the index of NamespaceURI on this server.
func (uaServer *UaSrvService) NamespaceIndex() uint16 { return uaServer.nsi }

func NewUaSrvService(cfg component.DemoServer, log *logrus.Logger) (*UaSrvService, error) {
	srv, err := createUaServer(cfg, log)
	if err != nil {
		log.WithField("Err", err).Errorln("Couldn't create OPC-UA server ⛔")
		return nil, err
	}
	nsi := srv.NamespaceManager().Add(NamespaceURI)
	folderID := ua.NodeIDString{NamespaceIndex: nsi, ID: "IoTSensors"}
	ioTSensors := server.NewObjectNode(
		folderID,
		ua.QualifiedName{NamespaceIndex: nsi, Name: "IoTSensors"},
		ua.LocalizedText{Text: "IoT Sensors"},
		ua.LocalizedText{Text: "A parent object for the simulated limit alarms."},
		nil,
		[]ua.Reference{
			{
				ReferenceTypeID: ua.ReferenceTypeIDOrganizes,
				IsInverse:       true,
				TargetID:        ua.ExpandedNodeID{NodeID: ua.ObjectIDObjectsFolder},
			},
			{
				ReferenceTypeID: ua.ReferenceTypeIDHasTypeDefinition,
				TargetID:        ua.ExpandedNodeID{NodeID: ua.ObjectTypeIDFolderType},
			},
		},
		0,
	)
	if err := srv.NamespaceManager().AddNode(ioTSensors); err != nil {
		return nil, errors.Wrap(err, "adding sensors folder")
	}
	return &UaSrvService{server: srv, nsi: nsi, folder: folderID, log: log}, nil
}

// ListenAndServe blocks until the server is closed.
func (uaServer *UaSrvService) ListenAndServe() error {
	uaServer.log.WithFields(logrus.Fields{
		"Server":   uaServer.server.LocalDescription().ApplicationName.Text,
		"Endpoint": uaServer.server.EndpointURL(),
	}).Infoln("Starting OPC-UA server 🔔")
	err := uaServer.server.ListenAndServe()
	if err != ua.BadServerHalted {
		uaServer.log.WithField("Err", err).Errorln("OPC-UA server stopped ⛔")
		return errors.Wrap(err, "starting server")
	}
	return nil
}

func (uaServer *UaSrvService) Close() error {
	if err := uaServer.server.Close(); err != nil {
		return errors.Wrap(err, "stopping server")
	}
	uaServer.log.Infoln("OPC-UA server stopped ✅")
	return nil
}

func createUaServer(cfg component.DemoServer, log *logrus.Logger) (*server.Server, error) {
	certFile := filepath.Join(cfg.PKIDir, "server.crt")
	keyFile := filepath.Join(cfg.PKIDir, "server.key")
	if err := ensurePKI(cfg.PKIDir, cfg.Host, cfg.AdditionalHosts, log); err != nil {
		log.WithField("Err", err).Warnln("Couldn't create PKI 🔔")
	}

	users, err := hashPasswords(cfg.Users)
	if err != nil {
		return nil, err
	}

	endpointURL := fmt.Sprintf("opc.tcp://%s:%d", cfg.Host, cfg.Port)
	return server.New(
		ua.ApplicationDescription{
			ApplicationURI: fmt.Sprintf("urn:%s:%s", cfg.Host, appName),
			ProductURI:     "http://github.com/awcullen/opcua",
			ApplicationName: ua.LocalizedText{
				Text:   fmt.Sprintf("%s@%s", appName, cfg.Host),
				Locale: "en",
			},
			ApplicationType: ua.ApplicationTypeServer,
			DiscoveryURLs:   []string{endpointURL},
		},
		certFile,
		keyFile,
		endpointURL,
		server.WithBuildInfo(
			ua.BuildInfo{
				ProductURI:       "http://github.com/awcullen/opcua",
				ManufacturerName: "awcullen",
				ProductName:      appName,
				SoftwareVersion:  "latest",
			}),
		server.WithAnonymousIdentity(true),
		server.WithAuthenticateUserNameIdentityFunc(func(userIdentity ua.UserNameIdentity, applicationURI string, endpointURL string) error {
			if !checkUser(users, userIdentity) {
				log.WithField("User", userIdentity.UserName).Warnln("Login rejected ⛔")
				return ua.BadUserAccessDenied
			}
			log.WithFields(logrus.Fields{
				"User":        userIdentity.UserName,
				"Application": applicationURI,
			}).Debugln("Login accepted ✅")
			return nil
		}),
		server.WithSecurityPolicyNone(true),
		server.WithInsecureSkipVerify(),
		server.WithServerDiagnostics(true),
	)
}

// hashPasswords returns a copy of users with bcrypt hashed passwords.
func hashPasswords(users []component.UserID) ([]ua.UserNameIdentity, error) {
	out := make([]ua.UserNameIdentity, 0, len(users))
	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), 8)
		if err != nil {
			return nil, errors.Wrapf(err, "hashing password of %s", u.Username)
		}
		out = append(out, ua.UserNameIdentity{UserName: u.Username, Password: string(hash)})
	}
	return out, nil
}

func checkUser(users []ua.UserNameIdentity, identity ua.UserNameIdentity) bool {
	for _, user := range users {
		if user.UserName != identity.UserName {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(identity.Password)) == nil {
			return true
		}
	}
	return false
}

// ensurePKI creates the server and client certificates in dir unless dir
// already exists.
func ensurePKI(dir, host string, additionalHosts []string, log *logrus.Logger) error {
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		return nil
	}
	if err := os.MkdirAll(dir, os.ModeDir|0755); err != nil {
		return errors.Wrap(err, "creating pki directory")
	}
	if err := createNewCertificate(appName, host, additionalHosts,
		filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key")); err != nil {
		return err
	}
	if err := createNewCertificate("UaFacadeClient", host, additionalHosts,
		filepath.Join(dir, "client.crt"), filepath.Join(dir, "client.key")); err != nil {
		return err
	}
	log.WithField("Dir", dir).Infoln("PKI created ✅")
	return nil
}

func createNewCertificate(appName, host string, additionalHosts []string, certFile, keyFile string) error {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return ua.BadCertificateInvalid
	}

	applicationURI, _ := url.Parse(fmt.Sprintf("urn:%s:%s", host, appName))
	serialNumber, _ := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	subjectKeyHash := sha1.New()
	subjectKeyHash.Write(key.PublicKey.N.Bytes())
	subjectKeyId := subjectKeyHash.Sum(nil)

	dnsNames := append([]string{host}, additionalHosts...)
	var ipAddresses []net.IP
	if ip := net.ParseIP(host); ip != nil {
		ipAddresses = append(ipAddresses, ip)
	} else if ip := localIP(); ip != nil {
		ipAddresses = append(ipAddresses, ip)
	}

	uris := []*url.URL{applicationURI}
	for _, h := range additionalHosts {
		if u, e := url.Parse(fmt.Sprintf("urn:%s:%s", h, appName)); e == nil {
			uris = append(uris, u)
		}
	}

	template := x509.Certificate{
		SerialNumber:          serialNumber,
		Subject:               pkix.Name{CommonName: appName},
		SubjectKeyId:          subjectKeyId,
		AuthorityKeyId:        subjectKeyId,
		NotBefore:             time.Now(),
		NotAfter:              time.Now().AddDate(1, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment | x509.KeyUsageKeyEncipherment | x509.KeyUsageDataEncipherment | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		DNSNames:              dnsNames,
		IPAddresses:           ipAddresses,
		URIs:                  uris,
	}

	rawcrt, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return ua.BadCertificateInvalid
	}
	if err := writePEM(certFile, &pem.Block{Type: "CERTIFICATE", Bytes: rawcrt}); err != nil {
		return err
	}
	return writePEM(keyFile, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}

func writePEM(path string, block *pem.Block) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()
	return errors.Wrapf(pem.Encode(f, block), "writing %s", path)
}

// localIP is the address used for outbound traffic, nil when offline.
func localIP() net.IP {
	conn, err := net.Dial("udp", "8.8.8.8:53")
	if err != nil {
		return nil
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP
}
