package render

import "os"

// Branding carries the company identity stamped onto generated documents.
// Colors are six-digit hex without the leading hash. LogoPath points at a
// PNG or JPEG on local disk rendered above the title in both formats.
type Branding struct {
	CompanyName  string `toml:"company_name"`
	Tagline      string `toml:"tagline"`
	Contact      string `toml:"contact"`
	FooterText   string `toml:"footer_text"`
	LogoPath     string `toml:"logo_path"`
	PrimaryColor string `toml:"primary_color"`
	AccentColor  string `toml:"accent_color"`
}

// Env maps environment variable names to Branding fields.
type Env struct {
	CompanyName  string
	Tagline      string
	Contact      string
	FooterText   string
	LogoPath     string
	PrimaryColor string
	AccentColor  string
}

func DefaultEnv() Env {
	return Env{
		CompanyName:  "SCOPELINE_BRANDING_COMPANY_NAME",
		Tagline:      "SCOPELINE_BRANDING_TAGLINE",
		Contact:      "SCOPELINE_BRANDING_CONTACT",
		FooterText:   "SCOPELINE_BRANDING_FOOTER_TEXT",
		LogoPath:     "SCOPELINE_BRANDING_LOGO_PATH",
		PrimaryColor: "SCOPELINE_BRANDING_PRIMARY_COLOR",
		AccentColor:  "SCOPELINE_BRANDING_ACCENT_COLOR",
	}
}

func (b *Branding) Finalize(env Env) error {
	b.loadDefaults()
	b.loadEnv(env)
	return nil
}

func (b *Branding) Merge(in *Branding) {
	if in == nil {
		return
	}
	if in.CompanyName != "" {
		b.CompanyName = in.CompanyName
	}
	if in.Tagline != "" {
		b.Tagline = in.Tagline
	}
	if in.Contact != "" {
		b.Contact = in.Contact
	}
	if in.FooterText != "" {
		b.FooterText = in.FooterText
	}
	if in.LogoPath != "" {
		b.LogoPath = in.LogoPath
	}
	if in.PrimaryColor != "" {
		b.PrimaryColor = in.PrimaryColor
	}
	if in.AccentColor != "" {
		b.AccentColor = in.AccentColor
	}
}

func (b *Branding) loadDefaults() {
	if b.CompanyName == "" {
		b.CompanyName = "Scopeline"
	}
	if b.FooterText == "" {
		b.FooterText = "Generated from a recorded site walkthrough. Verify quantities before bidding."
	}
	if b.PrimaryColor == "" {
		b.PrimaryColor = "1F3864"
	}
	if b.AccentColor == "" {
		b.AccentColor = "C55A11"
	}
}

func (b *Branding) loadEnv(env Env) {
	if v := os.Getenv(env.CompanyName); v != "" {
		b.CompanyName = v
	}
	if v := os.Getenv(env.Tagline); v != "" {
		b.Tagline = v
	}
	if v := os.Getenv(env.Contact); v != "" {
		b.Contact = v
	}
	if v := os.Getenv(env.FooterText); v != "" {
		b.FooterText = v
	}
	if v := os.Getenv(env.LogoPath); v != "" {
		b.LogoPath = v
	}
	if v := os.Getenv(env.PrimaryColor); v != "" {
		b.PrimaryColor = v
	}
	if v := os.Getenv(env.AccentColor); v != "" {
		b.AccentColor = v
	}
}
