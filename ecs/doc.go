// Package ecs bridges imgview viewport commands into a [Donburi] world.
//
// [NewDonburiSink] publishes every command as a typed event on
// [CommandEventType] and mirrors the latest view state into a singleton
// entity carrying [ViewStateComponent], so ECS systems can read zoom, pan and
// hover without subscribing.
//
// Usage:
//
//	sink := ecs.NewDonburiSink(world)
//	viewport.SetCommandSink(sink)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
