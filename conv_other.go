//go:build !(((darwin || linux) && (amd64 || arm64)) || (windows && (amd64 || arm64 || 386)))

package convhook

const targetConvs = 1 << ConvGo
