// Package plugin implements plugin manifests, their validation, discovery of
// plugin directories, and the process-wide plugin registry.
//
// # Manifests
//
// A plugin is a directory holding a manifest.json (or manifest.yaml):
//
//	{
//	  "id": "com.acme.tools",
//	  "name": "Acme Tools",
//	  "version": "1.2.0",
//	  "apiVersion": "1.0.0",
//	  "description": "Handy tools",
//	  "author": "Acme",
//	  "commands": [
//	    {
//	      "name": "say-hello",
//	      "displayName": "Say Hello",
//	      "description": "Greets the world",
//	      "mode": "no-view",
//	      "handler": "commands/hello"
//	    }
//	  ]
//	}
//
// Validate checks an untyped manifest value and reports every violation at
// once rather than stopping at the first.
//
// # Registry
//
// Registry owns registered plugins, their enabled flag, and their load
// status. Registering a plugin registers its commands through a CommandSync
// and runs its startup hook in the background; a failing hook marks the
// plugin's status as errored but leaves the plugin and its commands in place.
// Enable and Disable only toggle visibility; the commands of a disabled
// plugin stay registered.
package plugin
