// Package config 提供 GLM 适配器的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → .env 键值文件 → 环境变量 的顺序叠加，
// .env 中的 glm_api_key 与环境变量 GLM_API_KEY 等价。
package config
