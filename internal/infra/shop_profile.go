package infra

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ShopProfile is the printed identity of the shop on receipts and emails.
type ShopProfile struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Phone   string `yaml:"phone"`
	Footer  string `yaml:"footer"`
}

func DefaultShopProfile() ShopProfile {
	return ShopProfile{
		Name:   "UTC Service Center",
		Footer: "Terima kasih atas kunjungan Anda",
	}
}

// LoadShopProfile reads the YAML profile at path. A missing file yields the
// defaults; blank fields in the file fall back to them too.
func LoadShopProfile(path string) (ShopProfile, error) {
	p := DefaultShopProfile()
	if path == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, errors.Wrap(err, "read shop profile")
	}

	var fromFile ShopProfile
	if err := yaml.Unmarshal(raw, &fromFile); err != nil {
		return p, errors.Wrap(err, "parse shop profile")
	}
	if fromFile.Name != "" {
		p.Name = fromFile.Name
	}
	if fromFile.Footer != "" {
		p.Footer = fromFile.Footer
	}
	p.Address = fromFile.Address
	p.Phone = fromFile.Phone
	return p, nil
}
