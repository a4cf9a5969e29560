// Package store 提供访客会话状态与购物车快照的可观察版本化存储。
package store
