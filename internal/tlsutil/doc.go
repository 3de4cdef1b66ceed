// Package tlsutil 为访问 GLM 上游的 HTTP 客户端提供加固的 TLS 配置
// （TLS 1.2+，仅 AEAD 密码套件），并遵循 HTTPS_PROXY 等代理环境变量。
package tlsutil
