// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package packetizer

// Piece 跨调用保存的残留数据
//
// 发送方向：不够一个包的输入数据；接收方向：输出buffer放不下的数据。
// 容量在配置时确定，不超过一个包的最大payload，写满后多余的数据被丢弃。
type Piece struct {
	buf []byte
	n   int
}

// Resize 重新设置容量，已有数据被清空
func (p *Piece) Resize(capacity int) {
	if cap(p.buf) >= capacity {
		p.buf = p.buf[:capacity]
	} else {
		p.buf = make([]byte, capacity)
	}
	p.n = 0
}

func (p *Piece) Len() int {
	return p.n
}

func (p *Piece) Cap() int {
	return len(p.buf)
}

func (p *Piece) Free() int {
	return len(p.buf) - p.n
}

// Bytes 返回内部内存块的引用，下一次写操作前有效
func (p *Piece) Bytes() []byte {
	return p.buf[:p.n]
}

// Append 追加数据，返回实际写入的字节数
func (p *Piece) Append(b []byte) int {
	n := copy(p.buf[p.n:], b)
	p.n += n
	return n
}

// Drain 从头部取出数据拷贝到dst中，返回拷贝的字节数
func (p *Piece) Drain(dst []byte) int {
	n := copy(dst, p.buf[:p.n])
	p.Consume(n)
	return n
}

// Consume 丢弃头部n个字节
func (p *Piece) Consume(n int) {
	if n >= p.n {
		p.n = 0
		return
	}
	copy(p.buf, p.buf[n:p.n])
	p.n -= n
}

func (p *Piece) Reset() {
	p.n = 0
}
