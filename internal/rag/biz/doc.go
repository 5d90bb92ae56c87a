// Package biz 提供 RAG 服务的业务逻辑层。
//
// 该包由以下组件组成：
//   - ChunkDocument: 将文档切分为带位置信息的重叠分块
//   - Embedder: 对文本做单条与批量向量化
//   - Answerer: 可选的 LLM 答案生成
//   - Pipeline: 组合以上组件与向量存储，提供入库与检索
package biz
