package catalog

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load reads a catalog from a YAML, JSON or TOML file. The format follows the
// file extension. A build catalog without an explicit budget gets the default one.
func Load(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("variant", string(VariantBuild))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var c Catalog
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	if c.Variant == VariantBuild && c.BudgetLimit == 0 {
		c.BudgetLimit = DefaultBudgetLimit
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return &c, nil
}
