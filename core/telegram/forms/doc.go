// Package forms drives multi-step forms and inline menus on top of a telebot bot.
//
// Forms and menus are declared with a builder API and registered on an explicit
// Registry. Every field and menu item gets a state token of the form
// "<entity>.<key>" which is stored as the conversation state while that step is
// current. Collected values live in the conversation bag under "<entity>:<key>".
//
// A Dispatcher owns the sequencing: Start moves a conversation onto the first
// field, ManagerHandler runs the value pipeline for the current field and advances,
// ShowMenu renders menus and Attach wires menu callbacks into the bot registry.
package forms
