package version

// Version is overridden at build time with
// -ldflags "-X github.com/bnema/galho-seco-gateway/internal/version.Version=v1.2.3".
var Version = "dev"
