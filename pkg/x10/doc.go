// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package x10 implements the X10 power-line/RF home-automation protocol:
// frame encoding and decoding, the transmit/ACK state machine, a registry
// of addressable modules, and the connection supervisor that keeps a
// CM11-style serial controller or a CM15Pro-style USB controller online.
//
// Two backends are supported: a serial ("SER") controller that speaks a
// poll/checksum/ACK framed protocol, and a USB ("CM15") controller that
// additionally forwards RF frames (standard device commands and security
// sensor events). Callers drive everything through Manager; Engine,
// Registry, Codec and the Transport implementations are exported for
// testing and advanced use but are normally only touched indirectly.
package x10
